package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/go-faster/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/donutnomad/dbenumgen/plugin"
)

var checkCmd = &cobra.Command{
	Use:   "check [路径...]",
	Short: "检查生成文件是否最新，不写入任何文件",
	Long:  "check 在内存中重新生成代码并与磁盘上的文件比较，存在差异时打印 unified diff 并以非零状态退出。",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}

	stale, checked, err := s.check(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if len(stale) > 0 {
		return errors.Errorf("%d 个生成文件不是最新的，请运行 dbenumgen", len(stale))
	}

	s.logger.Info().Int("files", checked).Msg("生成文件均为最新")
	return nil
}

// check 在内存中生成并与磁盘比较，返回过期的文件和检查过的文件数
func (s *session) check(ctx context.Context, w io.Writer) ([]string, int, error) {
	opts := s.runOptions()
	opts.DryRun = true
	stats, err := plugin.Run(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	stale, err := diffOutputs(stats.Outputs, w)
	return stale, len(stats.Outputs), err
}

// diffOutputs 对比期望内容与磁盘文件，打印差异并返回过期的文件
func diffOutputs(outputs map[string][]byte, w io.Writer) ([]string, error) {
	paths := lo.Keys(outputs)
	slices.Sort(paths)

	var stale []string
	for _, path := range paths {
		want := outputs[path]
		current, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		if bytes.Equal(current, want) {
			continue
		}

		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(current)),
			B:        difflib.SplitLines(string(want)),
			FromFile: path + " (当前)",
			ToFile:   path + " (期望)",
			Context:  3,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "diff %s", path)
		}
		if _, err := fmt.Fprint(w, text); err != nil {
			return nil, err
		}
		stale = append(stale, path)
	}
	return stale, nil
}
