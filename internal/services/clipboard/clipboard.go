// Package clipboard copies rendered trees to the system clipboard.
package clipboard

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// CopierFunc adapts a function into a Copier.
type CopierFunc func(text string) error

// Copy invokes the underlying function.
func (copier CopierFunc) Copy(text string) error {
	return copier(text)
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct{}

// NewService constructs a clipboard-backed Copier.
func NewService() *Service {
	return &Service{}
}

// Copy writes text to the system clipboard.
func (service *Service) Copy(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("copy to clipboard: no clipboard utility available")
	}
	if writeErr := clipboard.WriteAll(text); writeErr != nil {
		return fmt.Errorf("copy to clipboard: %w", writeErr)
	}
	return nil
}

var _ Copier = (*Service)(nil)
