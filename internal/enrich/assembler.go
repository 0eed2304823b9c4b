package enrich

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// Normalization patterns for typesetting text.
var (
	lineComment  = regexp.MustCompile(`%[^\n]*`)
	commentEnv   = regexp.MustCompile(`(?s)\\begin\{comment\}.*?\\end\{comment\}`)
	iffalseBlock = regexp.MustCompile(`(?s)\\iffalse.*?\\fi`)
	newlineRun   = regexp.MustCompile(`\n+`)
	hardBreak    = regexp.MustCompile(`\\\\`)
	spaceRun     = regexp.MustCompile(`[ \t\r\f]{3,}`)
	beginDoc     = regexp.MustCompile(`\\begin\{document\}`)
	includeRef   = regexp.MustCompile(`\\(?:input|include)\{([^}]+)\}`)
)

// maxTexFileBytes caps how much of a single typesetting file is read (20MB).
const maxTexFileBytes = 20 << 20

// Document is the normalized, include-resolved reconstruction of a
// multi-file typesetting bundle.
type Document struct {
	// Files maps each typesetting filename to its normalized text.
	Files map[string]string

	// Main is the include-resolved text of the main file. Empty when no
	// main file could be designated; use FullText for a best-effort body.
	Main string

	// HasMain reports whether a main file was designated.
	HasMain bool

	// order preserves archive enumeration order for deterministic output.
	order []string
}

// FullText returns the best-effort single logical document: the main text
// when one was designated, otherwise every per-file text concatenated in
// enumeration order.
func (d *Document) FullText() string {
	if d.HasMain {
		return d.Main
	}
	parts := make([]string, 0, len(d.order))
	for _, name := range d.order {
		parts = append(parts, d.Files[name])
	}
	return strings.Join(parts, "\n")
}

// Assembler reconstructs a logical document from a source archive.
type Assembler struct {
	logger zerolog.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(logger zerolog.Logger) *Assembler {
	return &Assembler{logger: logger}
}

// Assemble extracts the archive at path and reconstructs the document.
// Every failure degrades to a nil Document ("not available"): this step is
// never fatal to the pipeline, it only reduces extraction quality for the
// downstream strategies.
func (a *Assembler) Assemble(archivePath string) *Document {
	files, order, err := readTexFiles(archivePath)
	if err != nil {
		a.logger.Debug().Err(err).Str("archive", archivePath).Msg("source archive is not readable")
		return nil
	}
	if len(order) == 0 {
		a.logger.Debug().Str("archive", archivePath).Msg("no typesetting files in archive")
		return nil
	}

	bblNames := files.bblNames
	texNames := order

	mainName := selectMainFile(texNames, bblNames)
	if mainName == "" {
		a.logger.Debug().Msg("no main file from bibliography; scanning for document-begin marker")
	}

	doc := &Document{
		Files: make(map[string]string, len(texNames)),
		order: texNames,
	}
	for _, name := range texNames {
		normalized := normalizeTex(files.contents[name])
		if mainName == "" && beginDoc.MatchString(normalized) {
			mainName = name
			a.logger.Debug().Str("file", name).Msg("chose main file by document-begin marker")
		}
		doc.Files[name] = normalized
	}

	if mainName == "" {
		a.logger.Debug().Msg("no typesetting file contains a document-begin marker")
		return doc
	}

	doc.HasMain = true
	doc.Main = inlineIncludes(doc.Files[mainName], doc.Files, map[string]bool{mainName: true})
	return doc
}

// texArchive holds the raw contents read from an archive.
type texArchive struct {
	contents map[string]string
	bblNames []string
}

// readTexFiles extracts all .tex file contents (raw) and .bbl names from a
// tar or tar.gz archive, preserving entry order for the .tex files.
func readTexFiles(path string) (*texArchive, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var reader io.Reader = f
	if gz, err := gzip.NewReader(f); err == nil {
		defer gz.Close()
		reader = gz
	} else {
		// Not gzip-compressed; rewind and read as a plain tar.
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, nil, err
		}
		reader = f
	}

	archive := &texArchive{contents: make(map[string]string)}
	var texOrder []string

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		name := hdr.Name
		switch {
		case strings.HasSuffix(name, ".tex"):
			data, err := io.ReadAll(io.LimitReader(tr, maxTexFileBytes))
			if err != nil {
				return nil, nil, err
			}
			archive.contents[name] = string(data)
			texOrder = append(texOrder, name)
		case strings.HasSuffix(name, ".bbl"):
			archive.bblNames = append(archive.bblNames, name)
		}
	}

	return archive, texOrder, nil
}

// selectMainFile applies the bibliography-based main-file policy. It returns
// "" when selection must fall back to scanning for the document-begin
// marker. The result is a pure function of the two filename sets.
func selectMainFile(texNames, bblNames []string) string {
	switch len(bblNames) {
	case 0:
		if len(texNames) == 1 {
			return texNames[0]
		}
		// Multiple candidates and nothing to disambiguate with.
		return ""
	case 1:
		candidate := strings.TrimSuffix(bblNames[0], ".bbl") + ".tex"
		for _, name := range texNames {
			if name == candidate {
				return candidate
			}
		}
		return ""
	default:
		return ""
	}
}

// normalizeTex strips comments and dead regions and collapses whitespace.
// The result is stable: normalizing already-normalized text is a no-op.
func normalizeTex(content string) string {
	content = lineComment.ReplaceAllString(content, "")
	content = commentEnv.ReplaceAllString(content, "")
	content = iffalseBlock.ReplaceAllString(content, "")
	content = newlineRun.ReplaceAllString(content, "\n")
	content = hardBreak.ReplaceAllString(content, "")
	content = spaceRun.ReplaceAllString(content, " ")
	return content
}

// inlineIncludes substitutes every \input/\include reference in text with
// the normalized content of the referenced file, recursively. Missing
// referents substitute as empty text; the seen set guards against cycles.
func inlineIncludes(text string, files map[string]string, seen map[string]bool) string {
	return includeRef.ReplaceAllStringFunc(text, func(ref string) string {
		m := includeRef.FindStringSubmatch(ref)
		name := m[1]
		if !strings.HasSuffix(name, ".tex") {
			name += ".tex"
		}
		if seen[name] {
			return ""
		}
		content, ok := files[name]
		if !ok {
			return ""
		}
		seen[name] = true
		inlined := inlineIncludes(content, files, seen)
		delete(seen, name)
		return inlined
	})
}
