package main

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/Faultbox/psxkit/internal/config"
	"github.com/Faultbox/psxkit/internal/logger"
	"github.com/Faultbox/psxkit/pkg/encoding"
	"github.com/Faultbox/psxkit/pkg/formats"
	"github.com/Faultbox/psxkit/pkg/psx"
	"go.uber.org/zap"
)

// loaded is a file read by kind.
type loaded struct {
	kind formats.Kind
	psk  *formats.PSK
	psa  *formats.PSA
	size int
}

// load reads path, detecting the kind from its first section.
func (a *app) load(path string) (*loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	kind, err := formats.Detect(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	l := &loaded{kind: kind, size: len(data)}
	switch kind {
	case formats.KindPSK:
		l.psk, err = formats.ParsePSK(data, a.opts...)
	case formats.KindPSA:
		l.psa, err = formats.ParsePSA(data, a.opts...)
	default:
		return nil, fmt.Errorf("%s: not a PSK or PSA file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logger.Debug("file loaded",
		zap.String("path", path),
		zap.Stringer("kind", kind),
		zap.Int("bytes", len(data)),
		zap.Int("skipped_sections", len(a.skipped)))
	return l, nil
}

func (a *app) loadPSA(path string) (*formats.PSA, error) {
	l, err := a.load(path)
	if err != nil {
		return nil, err
	}
	if l.psa == nil {
		return nil, fmt.Errorf("%s: not a PSA file", path)
	}
	return l.psa, nil
}

func (a *app) cmdInfo(args []string) error {
	var flags config.Flags
	fs := a.flagSet("info", &flags)
	if err := a.parse(fs, &flags, args, 1, "info <file>"); err != nil {
		return err
	}

	path := fs.Arg(0)
	l, err := a.load(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "File:       %s\n", path)
	fmt.Fprintf(a.stdout, "Kind:       %s\n", l.kind)
	fmt.Fprintf(a.stdout, "Size:       %d bytes\n", l.size)
	if l.psk != nil {
		a.printPSK(l.psk)
	} else {
		a.printPSA(l.psa)
	}
	a.reportSkipped()
	return nil
}

func (a *app) printPSK(psk *formats.PSK) {
	w := a.stdout
	fmt.Fprintf(w, "Points:     %d\n", len(psk.Points))
	fmt.Fprintf(w, "Wedges:     %d\n", len(psk.Wedges))
	fmt.Fprintf(w, "Faces:      %d\n", len(psk.Faces))
	fmt.Fprintf(w, "Materials:  %d\n", len(psk.Materials))
	fmt.Fprintf(w, "Bones:      %d\n", len(psk.Bones))
	fmt.Fprintf(w, "Weights:    %d\n", len(psk.Weights))
	if psk.HasExtraUVs {
		fmt.Fprintf(w, "Extra UVs:  %d channel(s)\n", len(psk.ExtraUVs))
	}
	if len(psk.VertexColors) > 0 {
		fmt.Fprintf(w, "Colors:     %d\n", len(psk.VertexColors))
	}
	if len(psk.VertexNormals) > 0 {
		fmt.Fprintf(w, "Normals:    %d\n", len(psk.VertexNormals))
	}
	if len(psk.MorphInfos) > 0 {
		fmt.Fprintf(w, "Morphs:     %d (%d deltas)\n", len(psk.MorphInfos), len(psk.MorphData))
	}

	if len(psk.Materials) > 0 {
		fmt.Fprintln(w, "\nMaterials:")
		for i, m := range psk.Materials {
			fmt.Fprintf(w, "  [%d] %s\n", i, encoding.NameToUTF8(m.Name))
		}
	}
	a.printBones(psk.Bones)
}

func (a *app) printPSA(psa *formats.PSA) {
	w := a.stdout
	fmt.Fprintf(w, "Bones:      %d\n", len(psa.Bones))
	fmt.Fprintf(w, "Sequences:  %d\n", len(psa.Sequences))
	fmt.Fprintf(w, "Keys:       %d\n", len(psa.Keys))
	a.printBones(psa.Bones)
}

func (a *app) printBones(bones []psx.Bone) {
	if len(bones) == 0 {
		return
	}
	fmt.Fprintln(a.stdout, "\nBones:")
	for i, b := range bones {
		fmt.Fprintf(a.stdout, "  [%d] %s (parent %d)\n", i, encoding.NameToUTF8(b.Name), b.ParentIndex)
	}
}

func (a *app) cmdSequences(args []string) error {
	var flags config.Flags
	fs := a.flagSet("sequences", &flags)
	if err := a.parse(fs, &flags, args, 1, "sequences <file.psa>"); err != nil {
		return err
	}

	psa, err := a.loadPSA(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "%-32s %6s %6s %7s %8s\n", "NAME", "BONES", "FRAMES", "FPS", "OFFSET")
	for _, name := range psa.SequenceNames() {
		seq, _ := psa.Sequence(name)
		offset, err := psa.SequenceKeyOffset(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "%-32s %6d %6d %7.2f %8d\n",
			encoding.NameToUTF8(name), seq.BoneCount, seq.FrameCount, seq.FPS, offset)
	}
	a.reportSkipped()
	return nil
}

func (a *app) cmdKeys(args []string) error {
	var flags config.Flags
	fs := a.flagSet("keys", &flags)
	frame := fs.Int("frame", -1, "Print only this frame (-1 = all)")
	if err := a.parse(fs, &flags, args, 2, "keys [-frame N] <file.psa> <sequence>"); err != nil {
		return err
	}
	if *frame < -1 {
		fmt.Fprintf(a.stderr, "Error: -frame must be -1 or a frame index, got %d\n", *frame)
		return errUsage
	}

	psa, err := a.loadPSA(fs.Arg(0))
	if err != nil {
		return err
	}
	name := encoding.UTF8ToName(fs.Arg(1))
	data, err := psa.SequenceDataMatrix(name)
	if err != nil {
		return err
	}
	if *frame >= len(data) {
		return fmt.Errorf("frame %d out of range (frames: %d)", *frame, len(data))
	}

	for f, row := range data {
		if *frame >= 0 && f != *frame {
			continue
		}
		fmt.Fprintf(a.stdout, "frame %d\n", f)
		for b, v := range row {
			bone := fmt.Sprintf("#%d", b)
			if b < len(psa.Bones) {
				bone = encoding.NameToUTF8(psa.Bones[b].Name)
			}
			fmt.Fprintf(a.stdout, "  %-24s rot(%.4f %.4f %.4f %.4f) loc(%.4f %.4f %.4f)\n",
				bone, v[0], v[1], v[2], v[3], v[4], v[5], v[6])
		}
	}
	return nil
}

func (a *app) cmdConvert(args []string) error {
	var flags config.Flags
	fs := a.flagSet("convert", &flags)
	flags.RegisterWrite(fs)
	if err := a.parse(fs, &flags, args, 2, "convert [-extended] [-normalize] <in> <out>"); err != nil {
		return err
	}
	return a.rewrite(fs.Arg(0), fs.Arg(1), a.cfg.Write.Extended)
}

func (a *app) cmdNormalize(args []string) error {
	var flags config.Flags
	fs := a.flagSet("normalize", &flags)
	if err := a.parse(fs, &flags, args, 2, "normalize <in.psk> <out.psk>"); err != nil {
		return err
	}
	a.cfg.Write.NormalizeWeights = true

	l, err := a.load(fs.Arg(0))
	if err != nil {
		return err
	}
	if l.psk == nil {
		return fmt.Errorf("%s: not a PSK file", fs.Arg(0))
	}
	return a.writePSK(l.psk, fs.Arg(1), a.cfg.Write.Extended || hasOptionalSections(l.psk))
}

// rewrite reads in and writes it back out according to the write config.
func (a *app) rewrite(in, out string, extended bool) error {
	l, err := a.load(in)
	if err != nil {
		return err
	}
	if l.psa != nil {
		if a.cfg.Write.Validate {
			if err := l.psa.Validate(); err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
		}
		if err := formats.WritePSAFile(out, l.psa); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Wrote %s (%d sequences)\n", out, len(l.psa.Sequences))
		return nil
	}
	return a.writePSK(l.psk, out, extended)
}

func (a *app) writePSK(psk *formats.PSK, out string, extended bool) error {
	if a.cfg.Write.NormalizeWeights {
		psk.SortAndNormalizeWeights()
	}
	if a.cfg.Write.Validate {
		if err := psk.Validate(); err != nil {
			return err
		}
	}
	if err := formats.WritePSKFile(out, psk, formats.PSKWriteOptions{Extended: extended}); err != nil {
		return err
	}
	logger.Info("wrote mesh",
		zap.String("path", out),
		zap.Bool("extended", extended),
		zap.Bool("normalized", a.cfg.Write.NormalizeWeights))
	fmt.Fprintf(a.stdout, "Wrote %s (%d points, %d weights)\n", out, len(psk.Points), len(psk.Weights))
	return nil
}

func hasOptionalSections(psk *formats.PSK) bool {
	return psk.HasExtraUVs || len(psk.VertexColors) > 0 || len(psk.VertexNormals) > 0 ||
		len(psk.MorphInfos) > 0 || len(psk.MorphData) > 0 || len(psk.MaterialReferences) > 0
}

func (a *app) cmdValidate(args []string) error {
	var flags config.Flags
	fs := a.flagSet("validate", &flags)
	if err := a.parse(fs, &flags, args, 1, "validate <file>"); err != nil {
		return err
	}

	path := fs.Arg(0)
	l, err := a.load(path)
	if err != nil {
		return err
	}

	if l.psa != nil {
		if err := l.psa.Validate(); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintf(a.stdout, "%s: OK (%d sequences, %d keys)\n", path, len(l.psa.Sequences), len(l.psa.Keys))
		a.reportSkipped()
		return nil
	}

	if err := l.psk.Validate(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	unnormalized := 0
	for _, sum := range formats.WeightSums(l.psk.Weights) {
		if math.Abs(sum-1) > 1e-6 {
			unnormalized++
		}
	}
	fmt.Fprintf(a.stdout, "%s: OK (%d points, %d faces)\n", path, len(l.psk.Points), len(l.psk.Faces))
	if unnormalized > 0 {
		fmt.Fprintf(a.stdout, "  %d point(s) have weights that do not sum to 1; run psxtool normalize\n", unnormalized)
	}
	a.reportSkipped()
	return nil
}

func (a *app) cmdConfig(args []string) error {
	var flags config.Flags
	fs := a.flagSet("config", &flags)
	flags.RegisterWrite(fs)
	save := fs.Bool("save", false, "Write the effective config instead of printing it")
	out := fs.String("o", "", "Destination for -save (default: user config directory)")
	if err := a.parse(fs, &flags, args, 0, "config [-save] [-o path]"); err != nil {
		return err
	}

	if !*save {
		data, err := a.cfg.YAML()
		if err != nil {
			return err
		}
		_, err = a.stdout.Write(data)
		return err
	}

	path := *out
	var err error
	if path == "" {
		path = config.DefaultPath()
		err = a.cfg.Save()
	} else {
		err = a.cfg.SaveTo(path)
	}
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	logger.Info("saved config", zap.String("path", path))
	fmt.Fprintf(a.stdout, "Wrote %s\n", path)
	return nil
}
