package output

import (
	"io"

	"github.com/jamesainslie/qcheck/pkg/qcheck/diff"
	"gopkg.in/yaml.v3"
)

// YAMLFormatter writes the same document as JSONFormatter in YAML.
type YAMLFormatter struct{}

// WriteLine is a no-op; lines are part of the final document.
func (f *YAMLFormatter) WriteLine(io.Writer, diff.Line) error {
	return nil
}

// WriteSummary writes the run as a single YAML document.
func (f *YAMLFormatter) WriteSummary(w io.Writer, r *Result) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(buildDocument(r)); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
