package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Fepozopo/siox/pkg/siox"
)

// stroke is one circular refinement brush application.
type stroke struct {
	X, Y, R int
	Mode    siox.BrushMode
}

// strokeList collects repeated -add / -sub flags in command line order.
type strokeList struct {
	mode    siox.BrushMode
	strokes *[]stroke
}

func (s strokeList) String() string {
	if s.strokes == nil {
		return ""
	}
	var parts []string
	for _, st := range *s.strokes {
		if st.Mode == s.mode {
			parts = append(parts, fmt.Sprintf("%d,%d,%d", st.X, st.Y, st.R))
		}
	}
	return strings.Join(parts, " ")
}

func (s strokeList) Set(v string) error {
	st, err := parseStroke(v)
	if err != nil {
		return err
	}
	st.Mode = s.mode
	*s.strokes = append(*s.strokes, st)
	return nil
}

// parseStroke parses "x,y,r".
func parseStroke(v string) (stroke, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 3 {
		return stroke{}, fmt.Errorf("stroke %q: want x,y,r", v)
	}
	var n [3]int
	for i, p := range parts {
		x, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return stroke{}, fmt.Errorf("stroke %q: %w", v, err)
		}
		n[i] = x
	}
	if n[2] < 0 {
		return stroke{}, fmt.Errorf("stroke %q: negative radius", v)
	}
	return stroke{X: n[0], Y: n[1], R: n[2]}, nil
}
