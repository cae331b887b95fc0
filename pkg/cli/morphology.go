package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Fepozopo/siox/pkg/morph"
	"github.com/Fepozopo/siox/pkg/siox"
)

// morphologies maps backend names accepted by -morph and SIOX_MORPHOLOGY to
// constructors. Optional backends register themselves from build-tagged files.
var morphologies = map[string]func() siox.Morphology{
	"sweep": func() siox.Morphology { return morph.Sweep{} },
}

func registerMorphology(name string, fn func() siox.Morphology) {
	morphologies[name] = fn
}

func newMorphology(name string) (siox.Morphology, error) {
	if name == "" {
		name = "sweep"
	}
	fn, ok := morphologies[name]
	if !ok {
		return nil, fmt.Errorf("unknown morphology backend %q (available: %s)", name, strings.Join(morphologyNames(), ", "))
	}
	return fn(), nil
}

func morphologyNames() []string {
	names := make([]string, 0, len(morphologies))
	for n := range morphologies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
