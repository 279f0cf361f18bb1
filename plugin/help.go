package plugin

import (
	"fmt"
	"strings"
)

// HelpText 列出每个注解及其参数，用于命令行帮助
func HelpText(r *Registry) string {
	var b strings.Builder
	for _, gen := range r.Generators() {
		fmt.Fprintf(&b, "  @%s（%s）\n", gen.Annotation(), gen.Name())
		width := 0
		for _, d := range gen.ParamDefs() {
			width = max(width, len(d.Name))
		}
		for _, d := range gen.ParamDefs() {
			line := fmt.Sprintf("    %-*s  %s", width, d.Name, d.Description)
			if d.Required {
				line += "（必填）"
			}
			if d.Default != "" {
				line += fmt.Sprintf(" [默认 %s]", d.Default)
			}
			b.WriteString(line + "\n")
		}
	}
	if b.Len() == 0 {
		return "  （没有已注册的注解）\n"
	}
	return b.String()
}
