// Registry of CLI commands. Help output and dispatch both read from
// Commands, so new commands only need an entry here.

package cli

import (
	"fmt"
	"io"
	"strings"
)

// ArgSpec describes a single flag of a command. Fields are textual and meant
// for help output rather than machine-enforced typing.
type ArgSpec struct {
	Name        string // flag name without the dash
	Type        string // "int", "float", "path", "stroke", ...
	Required    bool
	Default     string // textual default (for help only)
	Description string
}

// CommandSpec defines a single command and its flags.
type CommandSpec struct {
	Name        string
	Args        []ArgSpec
	Usage       string
	Description string
	run         func(a *app, args []string) error
}

// Commands is filled in init to let command implementations refer back to
// the registry for their help text.
var Commands []CommandSpec

func init() {
	Commands = []CommandSpec{
		{
			Name: "segment",
			Args: []ArgSpec{
				{"image", "path", true, "", "input image"},
				{"trimap", "path", false, "", "trimap: black background, white foreground, gray unknown"},
				{"signatures", "path", false, "", "precomputed signatures instead of building them from the trimap"},
				{"out", "path", true, "", "output mask"},
				{"cutout", "path", false, "", "write the image with the mask as alpha"},
				{"save-signatures", "path", false, "", "write the signatures used"},
				{"smooth", "int", false, "2", "extra smoothing passes"},
				{"size-factor", "float", false, "3", "drop components smaller than largest/size-factor"},
				{"add", "stroke", false, "", "refine x,y,r adding foreground detail (repeatable)"},
				{"sub", "stroke", false, "", "refine x,y,r removing foreground detail (repeatable)"},
				{"add-threshold", "float", false, "1", "-add results below this become background"},
				{"sub-threshold", "float", false, "0", "-sub results below this become background"},
				{"feather", "float", false, "0", "gaussian sigma applied to the mask edges"},
				{"preview", "bool", false, "false", "show the cutout in the terminal"},
				{"morph", "string", false, "sweep", "morphology backend"},
				{"workers", "int", false, "0", "classification workers, 0 for all CPUs"},
			},
			Usage:       "segment -image in.png -trimap trimap.png -out mask.png [flags]",
			Description: "Extract the foreground object of an image.",
			run:         (*app).segment,
		},
		{
			Name: "frames",
			Args: []ArgSpec{
				{"trimap", "path", true, "", "trimap for the first frame"},
				{"out-dir", "path", true, "", "directory receiving one mask per frame"},
				{"size-factor", "float", false, "3", "drop components smaller than largest/size-factor"},
				{"morph", "string", false, "sweep", "morphology backend"},
				{"workers", "int", false, "0", "classification workers, 0 for all CPUs"},
			},
			Usage:       "frames -trimap trimap.png -out-dir masks frame1.png frame2.png ...",
			Description: "Segment a frame sequence reusing the first frame's signatures.",
			run:         (*app).frames,
		},
		{
			Name: "signature",
			Args: []ArgSpec{
				{"image", "path", true, "", "input image"},
				{"trimap", "path", true, "", "trimap marking known background and foreground"},
				{"out", "path", true, "", "output signature file (JSON)"},
			},
			Usage:       "signature -image in.png -trimap trimap.png -out sig.json",
			Description: "Build background and foreground color signatures.",
			run:         (*app).signature,
		},
		{
			Name:        "version",
			Usage:       "version",
			Description: "Print the version.",
			run:         (*app).version,
		},
		{
			Name:        "update",
			Args:        []ArgSpec{{"y", "bool", false, "false", "update without asking"}},
			Usage:       "update [-y]",
			Description: "Check GitHub releases and update the binary.",
			run:         (*app).update,
		},
		{
			Name:        "help",
			Usage:       "help [command]",
			Description: "Show help for all commands or one command.",
			run:         (*app).help,
		},
	}
}

func lookupCommand(name string) (CommandSpec, bool) {
	for _, c := range Commands {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return CommandSpec{}, false
}

// commandHelp renders the help text for c.
func commandHelp(c CommandSpec) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s - %s\nUsage: siox %s\n", c.Name, c.Description, c.Usage)
	for _, a := range c.Args {
		req := ""
		if a.Required {
			req = " (required)"
		}
		def := ""
		if a.Default != "" {
			def = fmt.Sprintf(" [default %s]", a.Default)
		}
		fmt.Fprintf(&sb, "  -%s %s%s%s\n      %s\n", a.Name, a.Type, req, def, a.Description)
	}
	return sb.String()
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "siox - simple interactive object extraction")
	fmt.Fprintln(w, "Commands available:")
	for _, c := range Commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.Name, c.Description)
	}
	fmt.Fprintln(w, "Run 'siox help <command>' for details.")
}
