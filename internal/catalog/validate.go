package catalog

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var ckanName = regexp.MustCompile(`^[a-z0-9_-]{2,}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("ckanname", func(fl validator.FieldLevel) bool {
		return ckanName.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("updatefrequency", func(fl validator.FieldLevel) bool {
		_, err := UpdateFrequencyCode(fl.Field().String())
		return err == nil
	})
	return v
}

// ValidName reports whether name is accepted as a dataset or showcase name.
func ValidName(name string) bool {
	return len(name) <= 100 && ckanName.MatchString(name)
}

// Validate checks that the dataset can be submitted to the catalog.
func (d *Dataset) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("dataset %s: %w", d.Name, err)
	}
	return nil
}

// Validate checks that the showcase can be submitted to the catalog.
func (s *Showcase) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("showcase %s: %w", s.Name, err)
	}
	return nil
}
