// Package scan walks a Python source tree and collects the source text
// of every assert statement.
//
// Files are parsed with tree-sitter. Tree-sitter is error-tolerant, so
// a file whose tree contains syntax errors is treated as a per-file
// parse failure: it is logged, contributes zero assertions, and the
// scan moves on to the next file.
package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"assertscan/pkg/errors"
)

// sourceSuffix selects the files eligible for scanning.
const sourceSuffix = ".py"

// assertNodeType is the tree-sitter-python node type for assert statements.
const assertNodeType = "assert_statement"

// Scanner extracts assertion statements from Python source trees.
// It is safe for concurrent use; each parse gets its own tree-sitter
// parser instance.
type Scanner struct {
	logger *log.Logger
}

// NewScanner creates a Scanner. A nil logger falls back to log.Default().
func NewScanner(logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.Default()
	}
	return &Scanner{logger: logger}
}

// Count returns the number of eligible source files under dir.
// Used to size the per-package progress task before scanning begins.
func (s *Scanner) Count(dir string) (int, error) {
	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), sourceSuffix) {
			n++
		}
		return nil
	})
	return n, err
}

// Scan walks dir in lexical order and returns the trimmed source text
// of every assert statement, in file-walk and in-file document order.
// Duplicates are preserved.
//
// onFile is invoked exactly once per eligible file, parsed or not, after
// that file has been handled. Context cancellation is checked between
// files and aborts the scan.
func (s *Scanner) Scan(ctx context.Context, dir string, onFile func()) ([]string, error) {
	asserts := []string{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), sourceSuffix) {
			return nil
		}

		found, err := s.scanFile(ctx, path)
		if err != nil {
			s.logger.Warn("parse failed", "file", path, "err", err)
		} else {
			asserts = append(asserts, found...)
		}

		if onFile != nil {
			onFile()
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	return asserts, nil
}

// scanFile parses one file and collects its assert statements.
func (s *Scanner) scanFile(ctx context.Context, path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, errors.New(errors.ErrCodeParse, "syntax errors in %s", path)
	}

	var found []string
	collectAsserts(root, content, &found)
	return found, nil
}

// collectAsserts appends assert statements in pre-order document order.
func collectAsserts(n *sitter.Node, content []byte, out *[]string) {
	if n.Type() == assertNodeType {
		*out = append(*out, strings.TrimSpace(string(content[n.StartByte():n.EndByte()])))
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		collectAsserts(n.Child(i), content, out)
	}
}
