package form

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator"
	"github.com/golang/geo/s2"
)

// Payload is the snapshot of a form handed to the Submitter, it only exists
// at submission time.
type Payload struct {
	Name      string  `field:"name" validate:"required"`
	Email     string  `field:"email" validate:"required"`
	Whatsapp  string  `field:"whatsapp" validate:"required"`
	Region    string  `field:"uf" validate:"required"`
	SubRegion string  `field:"city" validate:"required"`
	Items     []int64 `field:"items" validate:"required,min=1"`
	Point     *Point  `field:"position" validate:"required"`
	// optional
	Attachment *Attachment
}

// IncompleteError lists the fields a payload is missing.
type IncompleteError struct {
	Fields []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("form: missing %s", strings.Join(e.Fields, ", "))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("field")
	})
	return v
}

func checkPresence(p Payload) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	missing := &IncompleteError{}
	for _, fe := range verrs {
		missing.Fields = append(missing.Fields, fe.Field())
	}
	return missing
}

func validPoint(p Point) bool {
	return s2.LatLngFromDegrees(p.Latitude, p.Longitude).IsValid()
}

// payload builds the submission snapshot out of the current state.
func (s *State) payload() (Payload, error) {
	p := Payload{
		Name:      strings.TrimSpace(s.Contact.Name),
		Email:     strings.TrimSpace(s.Contact.Email),
		Whatsapp:  strings.TrimSpace(s.Contact.Whatsapp),
		Region:    s.Selection.Region,
		SubRegion: s.Selection.SubRegion,
		Items:     s.Items.IDs(),
	}
	if s.Point != nil {
		point := *s.Point
		p.Point = &point
	}
	if s.Attachment != nil {
		attachment := *s.Attachment
		p.Attachment = &attachment
	}

	err := checkPresence(p)
	if err != nil {
		return Payload{}, err
	}
	return p, nil
}
