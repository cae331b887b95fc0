package cli

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/Fepozopo/siox/pkg/raster"
	"github.com/Fepozopo/siox/pkg/siox"
)

// loadInputs decodes the image and, when given, the trimap, and checks that
// their sizes agree. Without a trimap every pixel starts Unknown.
func loadInputs(imagePath, trimapPath string) (image.Image, []uint32, []float64, int, int, error) {
	img, err := raster.Load(imagePath)
	if err != nil {
		return nil, nil, nil, 0, 0, err
	}
	pixels, w, h := raster.Pack(img)
	if trimapPath == "" {
		return img, pixels, siox.NewConfidence(w*h, siox.Unknown), w, h, nil
	}
	tri, err := raster.Load(trimapPath)
	if err != nil {
		return nil, nil, nil, 0, 0, err
	}
	cm, tw, th := raster.ConfidenceFromTrimap(tri)
	if tw != w || th != h {
		return nil, nil, nil, 0, 0, fmt.Errorf("%w: image is %dx%d, trimap is %dx%d", siox.ErrSizeMismatch, w, h, tw, th)
	}
	return img, pixels, cm, w, h, nil
}

func (a *app) newEngine(w, h int) (*siox.Engine, error) {
	ec, err := a.cfg.EngineConfig(&a.log)
	if err != nil {
		return nil, err
	}
	return siox.New(w, h, ec)
}

func (a *app) saveMask(path string, cm []float64, w, h int, feather float64) (*image.Gray, error) {
	mask, err := raster.MaskFromConfidence(cm, w, h)
	if err != nil {
		return nil, err
	}
	mask = raster.Feather(mask, feather)
	if err := raster.Save(path, mask); err != nil {
		return nil, err
	}
	return mask, nil
}

func (a *app) segment(args []string) error {
	fs := a.flagSet("segment")
	imagePath := fs.String("image", "", "input image")
	trimapPath := fs.String("trimap", "", "trimap image")
	sigPath := fs.String("signatures", "", "precomputed signatures")
	outPath := fs.String("out", "", "output mask")
	cutoutPath := fs.String("cutout", "", "output cutout")
	saveSigPath := fs.String("save-signatures", "", "write signatures")
	smooth := fs.Int("smooth", a.cfg.Smoothness, "extra smoothing passes")
	sizeFactor := fs.Float64("size-factor", a.cfg.SizeFactor, "component size factor")
	fs.Float64Var(&a.cfg.AddThreshold, "add-threshold", a.cfg.AddThreshold, "additive brush threshold")
	fs.Float64Var(&a.cfg.SubThreshold, "sub-threshold", a.cfg.SubThreshold, "subtractive brush threshold")
	feather := fs.Float64("feather", 0, "mask feather sigma")
	preview := fs.Bool("preview", false, "show the cutout in the terminal")
	fs.StringVar(&a.cfg.Morphology, "morph", a.cfg.Morphology, "morphology backend")
	fs.IntVar(&a.cfg.Workers, "workers", a.cfg.Workers, "classification workers")
	var strokes []stroke
	fs.Var(strokeList{mode: siox.AddEdge, strokes: &strokes}, "add", "add stroke x,y,r")
	fs.Var(strokeList{mode: siox.SubEdge, strokes: &strokes}, "sub", "subtract stroke x,y,r")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *imagePath == "" || *outPath == "" {
		fs.Usage()
		return errors.New("segment: -image and -out are required")
	}
	if *trimapPath == "" && *sigPath == "" {
		return errors.New("segment: need -trimap or -signatures")
	}

	img, pixels, cm, w, h, err := loadInputs(*imagePath, *trimapPath)
	if err != nil {
		return err
	}
	var sf signatureFile
	if *sigPath != "" {
		if sf, err = readSignatures(*sigPath); err != nil {
			return err
		}
		if sf.Limits != ([3]float64{}) {
			a.cfg.Limits = sf.Limits
		}
	}
	eng, err := a.newEngine(w, h)
	if err != nil {
		return err
	}

	if *sigPath != "" {
		eng.SetSignatures(sf.Background, sf.Foreground)
		_, err = eng.ApplyPrecomputedSignatures(pixels, cm, *smooth, *sizeFactor)
	} else {
		_, err = eng.Segmentate(pixels, cm, *smooth, *sizeFactor)
	}
	if err != nil {
		return fmt.Errorf("segmentation failed: %w", err)
	}

	for _, st := range strokes {
		if err := eng.Refine(siox.Circle(st.X, st.Y, st.R), st.Mode, a.cfg.RefineThreshold(st.Mode), cm); err != nil {
			return fmt.Errorf("refine %s at %d,%d: %w", st.Mode, st.X, st.Y, err)
		}
	}

	mask, err := a.saveMask(*outPath, cm, w, h, *feather)
	if err != nil {
		return err
	}
	if *cutoutPath != "" || *preview {
		cut, err := raster.Cutout(img, mask)
		if err != nil {
			return err
		}
		if *cutoutPath != "" {
			if err := raster.Save(*cutoutPath, cut); err != nil {
				return err
			}
		}
		if *preview {
			if err := previewImage(a.stdout, cut, os.Getenv); err != nil {
				a.log.Warn().Err(err).Msg("preview skipped")
			}
		}
	}
	if *saveSigPath != "" {
		bg, fg := eng.Signatures()
		if err := writeSignatures(*saveSigPath, a.cfg.Limits, bg, fg); err != nil {
			return err
		}
	}

	fg := 0
	for _, v := range cm {
		if v >= siox.Unknown {
			fg++
		}
	}
	fmt.Fprintf(a.stdout, "Segmented %dx%d: %d foreground pixels (%.1f%%), %d colors classified\n",
		w, h, fg, 100*float64(fg)/float64(w*h), eng.CacheSize())
	fmt.Fprintf(a.stdout, "Mask written to %s\n", *outPath)
	return nil
}

func (a *app) frames(args []string) error {
	fs := a.flagSet("frames")
	trimapPath := fs.String("trimap", "", "trimap for the first frame")
	outDir := fs.String("out-dir", "", "mask directory")
	sizeFactor := fs.Float64("size-factor", a.cfg.SizeFactor, "component size factor")
	fs.StringVar(&a.cfg.Morphology, "morph", a.cfg.Morphology, "morphology backend")
	fs.IntVar(&a.cfg.Workers, "workers", a.cfg.Workers, "classification workers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	frames := fs.Args()
	if *trimapPath == "" || *outDir == "" || len(frames) == 0 {
		fs.Usage()
		return errors.New("frames: -trimap, -out-dir and at least one frame are required")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", *outDir, err)
	}

	var eng *siox.Engine
	for i, path := range frames {
		trimap := ""
		if i == 0 {
			trimap = *trimapPath
		}
		_, pixels, cm, w, h, err := loadInputs(path, trimap)
		if err != nil {
			return err
		}
		if eng == nil {
			if eng, err = a.newEngine(w, h); err != nil {
				return err
			}
			_, err = eng.SegmentateVideoFirstFrame(pixels, cm, *sizeFactor)
		} else {
			_, err = eng.SegmentateVideoNextFrame(pixels, cm, *sizeFactor)
		}
		if err != nil {
			return fmt.Errorf("frame %s: %w", path, err)
		}

		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		out := filepath.Join(*outDir, base+"_mask.png")
		if _, err := a.saveMask(out, cm, w, h, 0); err != nil {
			return err
		}
		a.log.Debug().Str("frame", path).Int("cache", eng.CacheSize()).Msg("frame segmented")
		fmt.Fprintf(a.stdout, "%s -> %s\n", path, out)
	}
	return nil
}

func (a *app) signature(args []string) error {
	fs := a.flagSet("signature")
	imagePath := fs.String("image", "", "input image")
	trimapPath := fs.String("trimap", "", "trimap image")
	outPath := fs.String("out", "", "output signature file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *imagePath == "" || *trimapPath == "" || *outPath == "" {
		fs.Usage()
		return errors.New("signature: -image, -trimap and -out are required")
	}

	img, err := raster.Load(*imagePath)
	if err != nil {
		return err
	}
	tri, err := raster.Load(*trimapPath)
	if err != nil {
		return err
	}
	pixels, w, h := raster.Pack(img)
	cm, tw, th := raster.ConfidenceFromTrimap(tri)
	if tw != w || th != h {
		return fmt.Errorf("%w: image is %dx%d, trimap is %dx%d", siox.ErrSizeMismatch, w, h, tw, th)
	}

	ec, err := a.cfg.EngineConfig(&a.log)
	if err != nil {
		return err
	}
	bg, fg := siox.BuildSignatures(pixels, cm, ec)
	if len(bg) == 0 {
		return siox.ErrInsufficientBackground
	}
	if err := writeSignatures(*outPath, ec.Limits, bg, fg); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Background: %d centroids (%d samples), foreground: %d centroids (%d samples)\n",
		len(bg), bg.Weight(), len(fg), fg.Weight())
	return nil
}
