package promptservice

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/promptbox/internal/apperr"
)

// Languages lists the supported UI language codes.
var Languages = []string{"es", "en"}

var notBlank = validation.By(func(v interface{}) error {
	if s, _ := v.(string); strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
})

// validatePrompt checks user input before it reaches the model. Text length
// is counted in characters, not bytes. Callers hold s.mu.
func (s *Service) validatePrompt(in PromptInput) error {
	err := validation.Errors{
		"text": validation.Validate(in.Text,
			notBlank,
			validation.RuneLength(0, s.cfg.MaxTextLength).
				Error(fmt.Sprintf("must be at most %d characters", s.cfg.MaxTextLength)),
		),
		"folderId": validation.Validate(in.FolderID, validation.By(s.folderExists)),
	}.Filter()
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return nil
}

func (s *Service) folderExists(v interface{}) error {
	id, _ := v.(string)
	if id == "" {
		return nil
	}
	if _, ok := s.folders.Get(id); !ok {
		return errors.New("unknown folder")
	}
	return nil
}

func validateLanguage(lang string) error {
	langs := make([]interface{}, len(Languages))
	for i, l := range Languages {
		langs[i] = l
	}
	if err := validation.Validate(lang, validation.Required, validation.In(langs...)); err != nil {
		return fmt.Errorf("%w: language %v", apperr.ErrValidation, err)
	}
	return nil
}
