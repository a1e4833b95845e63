package livebind

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = newValidator()

// newValidator reports fields by their yaml name, the name users write in options files
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Options configures how templates are recognized in markup
type Options struct {
	// TagOpen and TagClose delimit a template tag, as in "{{ person.name }}"
	TagOpen  string `yaml:"tag_open" validate:"required,printascii"`
	TagClose string `yaml:"tag_close" validate:"required,printascii"`

	// Structural directives
	RepeatAttribute string `yaml:"repeat_attribute" validate:"required,printascii,lowercase"`
	IfAttribute     string `yaml:"if_attribute" validate:"required,printascii,lowercase"`
	WithAttribute   string `yaml:"with_attribute" validate:"required,printascii,lowercase"`
	ImportAttribute string `yaml:"import_attribute" validate:"required,printascii,lowercase"`

	// Indirect bindings: the rest of the attribute name names what is written
	IndirectAttributePrefix string `yaml:"indirect_attribute_prefix" validate:"required,printascii,lowercase"`
	IndirectStylePrefix     string `yaml:"indirect_style_prefix" validate:"required,printascii,lowercase"`
	IndirectPropertyPrefix  string `yaml:"indirect_property_prefix" validate:"required,printascii,lowercase"`
	IndirectClassPrefix     string `yaml:"indirect_class_prefix" validate:"required,printascii,lowercase"`
}

// Option configures Options
type Option func(*Options)

// DefaultOptions returns the default template options
func DefaultOptions() Options {
	return Options{
		TagOpen:                 "{{",
		TagClose:                "}}",
		RepeatAttribute:         "data-repeat",
		IfAttribute:             "data-if",
		WithAttribute:           "data-with",
		ImportAttribute:         "data-import",
		IndirectAttributePrefix: "data-attr-",
		IndirectStylePrefix:     "data-style-",
		IndirectPropertyPrefix:  "data-prop-",
		IndirectClassPrefix:     "data-class-",
	}
}

// WithDelimiters sets the template tag delimiters
func WithDelimiters(open, close string) Option {
	return func(o *Options) {
		o.TagOpen = open
		o.TagClose = close
	}
}

// WithDirectives sets the names of the repeat, if, with and import attributes. Empty
// names keep the current value.
func WithDirectives(repeat, ifAttr, with, importAttr string) Option {
	return func(o *Options) {
		setIfNotEmpty(&o.RepeatAttribute, repeat)
		setIfNotEmpty(&o.IfAttribute, ifAttr)
		setIfNotEmpty(&o.WithAttribute, with)
		setIfNotEmpty(&o.ImportAttribute, importAttr)
	}
}

// WithIndirectPrefixes sets the attribute, style, property and class prefixes. Empty
// prefixes keep the current value.
func WithIndirectPrefixes(attr, style, prop, class string) Option {
	return func(o *Options) {
		setIfNotEmpty(&o.IndirectAttributePrefix, attr)
		setIfNotEmpty(&o.IndirectStylePrefix, style)
		setIfNotEmpty(&o.IndirectPropertyPrefix, prop)
		setIfNotEmpty(&o.IndirectClassPrefix, class)
	}
}

// WithOptions replaces all options, for example with options read by LoadOptions
func WithOptions(options Options) Option {
	return func(o *Options) {
		*o = options
	}
}

func setIfNotEmpty(field *string, value string) {
	if value != "" {
		*field = value
	}
}

// LoadOptions reads options from a YAML file. Missing settings keep their defaults.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("failed to read options file: %w", err)
	}

	var options Options
	if err := yaml.Unmarshal(data, &options); err != nil {
		return Options{}, fmt.Errorf("failed to parse options file: %w", err)
	}
	options.fillDefaults()

	if err := options.Validate(); err != nil {
		return Options{}, fmt.Errorf("invalid options in %s: %w", path, err)
	}
	return options, nil
}

func (o *Options) fillDefaults() {
	defaults := DefaultOptions()
	setIfNotEmpty(&defaults.TagOpen, o.TagOpen)
	setIfNotEmpty(&defaults.TagClose, o.TagClose)
	setIfNotEmpty(&defaults.RepeatAttribute, o.RepeatAttribute)
	setIfNotEmpty(&defaults.IfAttribute, o.IfAttribute)
	setIfNotEmpty(&defaults.WithAttribute, o.WithAttribute)
	setIfNotEmpty(&defaults.ImportAttribute, o.ImportAttribute)
	setIfNotEmpty(&defaults.IndirectAttributePrefix, o.IndirectAttributePrefix)
	setIfNotEmpty(&defaults.IndirectStylePrefix, o.IndirectStylePrefix)
	setIfNotEmpty(&defaults.IndirectPropertyPrefix, o.IndirectPropertyPrefix)
	setIfNotEmpty(&defaults.IndirectClassPrefix, o.IndirectClassPrefix)
	*o = defaults
}

// Validate checks the options. Every setting is required, and the directive names and
// indirect prefixes must all differ.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return ValidationToMultiError(err)
	}

	var errs MultiError
	seen := make(map[string]string)
	for _, f := range []struct{ field, value string }{
		{"repeat_attribute", o.RepeatAttribute},
		{"if_attribute", o.IfAttribute},
		{"with_attribute", o.WithAttribute},
		{"import_attribute", o.ImportAttribute},
		{"indirect_attribute_prefix", o.IndirectAttributePrefix},
		{"indirect_style_prefix", o.IndirectStylePrefix},
		{"indirect_property_prefix", o.IndirectPropertyPrefix},
		{"indirect_class_prefix", o.IndirectClassPrefix},
	} {
		if other, ok := seen[f.value]; ok {
			errs = append(errs, FieldError{Field: f.field, Message: fmt.Sprintf("duplicates %s", other)})
			continue
		}
		seen[f.value] = f.field
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (o Options) apply(opts []Option) Options {
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
