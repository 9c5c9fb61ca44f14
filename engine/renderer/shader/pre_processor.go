package shader

import (
	"fmt"
	"strings"
)

// PreProcessor expands @oxy annotations in WGSL source.
type PreProcessor interface {
	// Process replaces every annotation line: include with the record struct, group with a
	// binding declaration and inject with the registered source. Declarations restart empty on
	// each call.
	//
	// Parameters:
	//   - source: WGSL with annotations
	//
	// Returns:
	//   - string: plain WGSL
	//   - error: a malformed annotation or an inject slot without source
	Process(source string) (string, error)

	// Inject registers the source of an inject slot, replacing earlier source for the slot.
	Inject(slot AnnotationArg, source string)

	// Declarations returns the group annotations of the last Process call in source order.
	Declarations() []Annotation
}

type preProcessor struct {
	injections   map[AnnotationArg]string
	declarations []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor returns a pre-processor without injections.
func NewPreProcessor() PreProcessor {
	return &preProcessor{injections: make(map[AnnotationArg]string)}
}

func (p *preProcessor) Inject(slot AnnotationArg, source string) {
	p.injections[slot] = source
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	var sb strings.Builder
	sb.Grow(len(source))
	for i, line := range strings.Split(source, "\n") {
		if i > 0 {
			sb.WriteByte('\n')
		}
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			sb.WriteString(line)
			continue
		}
		expanded, err := p.expand(a)
		if err != nil {
			return "", err
		}
		sb.WriteString(expanded)
	}
	return sb.String(), nil
}

// expand returns the WGSL that replaces a parsed annotation.
func (p *preProcessor) expand(a *Annotation) (string, error) {
	switch a.Type {
	case annotationTypeInclude:
		return recordTypes[a.Args[0]].source, nil
	case AnnotationTypeBindingGroup:
		typ, _ := wgslType(a.Args[2])
		p.declarations = append(p.declarations, *a)
		return fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", a.Group, a.Binding, addressSpaces[a.Args[0]], a.Args[1], typ), nil
	case AnnotationTypeInject:
		src, ok := p.injections[a.Args[0]]
		if !ok {
			return "", fmt.Errorf("line %d: no source injected for slot %q", a.Line, a.Args[0])
		}
		return src, nil
	}
	return "", fmt.Errorf("line %d: unknown annotation type %q", a.Line, a.Type)
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
