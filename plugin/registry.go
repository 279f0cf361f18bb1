package plugin

import (
	"cmp"
	"slices"

	"github.com/go-faster/errors"
	"github.com/samber/lo"
)

// Registry 注解名到生成器的一对一映射
type Registry struct {
	byAnnotation map[string]Generator
}

func NewRegistry() *Registry {
	return &Registry{byAnnotation: make(map[string]Generator)}
}

// Register 生成器名或注解名重复时报错
func (r *Registry) Register(gen Generator) error {
	if lo.ContainsBy(lo.Values(r.byAnnotation), func(g Generator) bool { return g.Name() == gen.Name() }) {
		return errors.Errorf("生成器 %q 已注册", gen.Name())
	}
	if prev, ok := r.byAnnotation[gen.Annotation()]; ok {
		return errors.Errorf("注解 @%s 已绑定到生成器 %q", gen.Annotation(), prev.Name())
	}
	r.byAnnotation[gen.Annotation()] = gen
	return nil
}

func (r *Registry) MustRegister(gen Generator) {
	if err := r.Register(gen); err != nil {
		panic(err)
	}
}

// Generators 按名字排序
func (r *Registry) Generators() []Generator {
	gens := lo.Values(r.byAnnotation)
	slices.SortFunc(gens, func(a, b Generator) int { return cmp.Compare(a.Name(), b.Name()) })
	return gens
}

// Annotations 已注册的注解名，已排序
func (r *Registry) Annotations() []string {
	names := lo.Keys(r.byAnnotation)
	slices.Sort(names)
	return names
}

// dispatch 按生成器分组，组内按文件和位置排序
// 一个目标上同一个注解写了多次只算一次
func (r *Registry) dispatch(targets []*Target) map[Generator][]*Target {
	out := make(map[Generator][]*Target)
	for _, t := range targets {
		for _, name := range lo.Uniq(lo.Map(t.Annotations, func(a *Annotation, _ int) string { return a.Name })) {
			if gen, ok := r.byAnnotation[name]; ok {
				out[gen] = append(out[gen], t)
			}
		}
	}
	for _, ts := range out {
		slices.SortFunc(ts, func(a, b *Target) int {
			return cmp.Or(cmp.Compare(a.FilePath, b.FilePath), cmp.Compare(a.Pos, b.Pos))
		})
	}
	return out
}
