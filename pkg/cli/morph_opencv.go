//go:build opencv

package cli

import (
	"github.com/Fepozopo/siox/pkg/cvmorph"
	"github.com/Fepozopo/siox/pkg/siox"
)

func init() {
	registerMorphology("opencv", func() siox.Morphology { return cvmorph.New() })
}
