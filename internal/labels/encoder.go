package labels

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnseen is returned when encoding a label that was not present at fit time.
var ErrUnseen = errors.New("previously unseen label")

// Encoder maps labels to dense integer codes in sorted label order.
// It is immutable once fitted.
type Encoder struct {
	classes []string
	index   map[string]int
}

// Fit builds an encoder over the distinct values.
func Fit(values []string) *Encoder {
	index := make(map[string]int)
	for _, v := range values {
		index[v] = 0
	}

	classes := make([]string, 0, len(index))
	for v := range index {
		classes = append(classes, v)
	}
	sort.Strings(classes)

	for i, v := range classes {
		index[v] = i
	}
	return &Encoder{classes: classes, index: index}
}

// Transform returns the code for label.
func (e *Encoder) Transform(label string) (int, error) {
	code, ok := e.index[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnseen, label)
	}
	return code, nil
}

// TransformAll encodes every value, failing on the first unseen one.
func (e *Encoder) TransformAll(values []string) ([]int, error) {
	codes := make([]int, len(values))
	for i, v := range values {
		code, err := e.Transform(v)
		if err != nil {
			return nil, err
		}
		codes[i] = code
	}
	return codes, nil
}

// Inverse returns the label for code.
func (e *Encoder) Inverse(code int) (string, error) {
	if code < 0 || code >= len(e.classes) {
		return "", fmt.Errorf("code %d out of range [0, %d)", code, len(e.classes))
	}
	return e.classes[code], nil
}

// Classes returns the fitted labels in code order.
func (e *Encoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

// Len returns the number of distinct labels.
func (e *Encoder) Len() int {
	return len(e.classes)
}
