package dependencies

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.yaml.in/yaml/v3"

	apperrors "github.com/kbukum/diconfig/errors"
	"github.com/kbukum/diconfig/producer"
	"github.com/kbukum/diconfig/validation"
)

// DocumentVersion is the only supported Document version.
const DocumentVersion = 1

// refPattern matches a class name, "@service" or "@service::Method".
const refPattern = `^(@[^@:\s]+(::[A-Za-z_][A-Za-z0-9_]*)?|[^@\s]\S*)$`

// Document is the YAML form of Dependencies. Factories and delegators are
// written as references:
//
//	app.MailerFactory          a registered class
//	@mailer.factory            the factory stored in the container under that name
//	@mailer.factory::Create    a method of that stored object
//
// Includes are other documents, relative to this one, merged before it.
type Document struct {
	Version         int                 `yaml:"version" validate:"required,eq=1"`
	Includes        []string            `yaml:"includes" validate:"dive,required"`
	Services        map[string]any      `yaml:"services" validate:"dive,keys,required,endkeys"`
	Invokables      Invokables          `yaml:"invokables" validate:"dive,keys,required,endkeys,required"`
	Factories       map[string]string   `yaml:"factories" validate:"dive,keys,required,endkeys,required"`
	Aliases         map[string]string   `yaml:"aliases" validate:"dive,keys,required,endkeys,required"`
	Delegators      map[string][]string `yaml:"delegators" validate:"dive,keys,required,endkeys,min=1,dive,required"`
	Shared          map[string]bool     `yaml:"shared"`
	SharedByDefault *bool               `yaml:"shared_by_default"`
}

// Invokables maps service names to class names. In YAML it is either a
// mapping or a list of class names registered under their own name.
type Invokables map[string]string

// UnmarshalYAML accepts both the mapping and the list form.
func (inv *Invokables) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		var classes []string
		if err := value.Decode(&classes); err != nil {
			return err
		}
		out := make(Invokables, len(classes))
		for _, class := range classes {
			out[class] = class
		}
		*inv = out
		return nil
	}
	var m map[string]string
	if err := value.Decode(&m); err != nil {
		return err
	}
	*inv = m
	return nil
}

// Parse decodes and validates a Document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.InvalidConfiguration("dependencies: malformed document").WithCause(err)
	}
	if err := validation.Validate(doc); err != nil {
		return nil, err
	}
	if err := doc.checkRefs(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// checkRefs rejects service references with an empty service or method name.
func (d *Document) checkRefs() error {
	v := validation.New()
	for _, name := range sortedKeys(d.Factories) {
		v.Pattern(fmt.Sprintf("factories[%s]", name), d.Factories[name], refPattern)
	}
	for _, name := range sortedKeys(d.Delegators) {
		for i, ref := range d.Delegators[name] {
			v.Pattern(fmt.Sprintf("delegators[%s][%d]", name, i), ref, refPattern)
		}
	}
	return v.Err()
}

// LoadFile reads and parses the Document at path. Includes are not followed.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.InvalidConfiguration(fmt.Sprintf("dependencies: reading %s", path)).
			WithCause(err).
			WithDetail(apperrors.DetailPath, path)
	}
	doc, err := Parse(data)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return nil, appErr.WithDetail(apperrors.DetailPath, path)
		}
		return nil, err
	}
	return doc, nil
}

// Load reads the Document at path with all of its includes and returns the
// merged map. An include cycle is an INVALID_CONFIGURATION error.
func Load(path string) (Dependencies, error) {
	return load(path, nil)
}

func load(path string, stack []string) (Dependencies, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Dependencies{}, fmt.Errorf("dependencies: resolving %s: %w", path, err)
	}
	if slices.Contains(stack, abs) {
		return Dependencies{}, apperrors.InvalidConfiguration(
			fmt.Sprintf("dependencies: circular include %s", strings.Join(append(stack, abs), " -> ")),
		).WithDetail(apperrors.DetailPath, abs)
	}
	stack = append(stack, abs)

	doc, err := LoadFile(abs)
	if err != nil {
		return Dependencies{}, err
	}

	parts := make([]Dependencies, 0, len(doc.Includes)+1)
	for _, include := range doc.Includes {
		if !filepath.IsAbs(include) {
			include = filepath.Join(filepath.Dir(abs), include)
		}
		sub, err := load(include, stack)
		if err != nil {
			return Dependencies{}, err
		}
		parts = append(parts, sub)
	}
	parts = append(parts, doc.Dependencies())
	return Merge(parts...), nil
}

// Dependencies converts the document into a dependency map.
func (d *Document) Dependencies() Dependencies {
	deps := Dependencies{
		Services:        d.Services,
		Invokables:      d.Invokables,
		Aliases:         d.Aliases,
		Shared:          d.Shared,
		SharedByDefault: d.SharedByDefault,
	}
	if len(d.Factories) > 0 {
		deps.Factories = make(map[string]producer.FactorySpec, len(d.Factories))
		for name, ref := range d.Factories {
			deps.Factories[name] = FactoryRef(ref)
		}
	}
	if len(d.Delegators) > 0 {
		deps.Delegators = make(map[string][]producer.DelegatorSpec, len(d.Delegators))
		for name, refs := range d.Delegators {
			specs := make([]producer.DelegatorSpec, len(refs))
			for i, ref := range refs {
				specs[i] = DelegatorRef(ref)
			}
			deps.Delegators[name] = specs
		}
	}
	return deps
}

// FactoryRef parses a factory reference as written in a Document. Parse
// rejects malformed references before they get here.
func FactoryRef(ref string) producer.FactorySpec {
	service, method, isService := parseRef(ref)
	switch {
	case !isService:
		return producer.ClassName(ref)
	case method != "":
		return producer.ServiceMethod(service, method)
	default:
		return producer.Service(service)
	}
}

// DelegatorRef parses a delegator reference as written in a Document.
func DelegatorRef(ref string) producer.DelegatorSpec {
	service, method, isService := parseRef(ref)
	switch {
	case !isService:
		return producer.DelegatorClass(ref)
	case method != "":
		return producer.DelegatorServiceMethod(service, method)
	default:
		return producer.DelegatorService(service)
	}
}

func parseRef(ref string) (service, method string, isService bool) {
	rest, ok := strings.CutPrefix(ref, "@")
	if !ok {
		return "", "", false
	}
	service, method, _ = strings.Cut(rest, "::")
	return service, method, true
}
