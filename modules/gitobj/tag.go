package gitobj

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/antgroup/gitsync/modules/plumbing"
)

// Tag is an annotated tag object. This pipeline never creates one (v1
// only ever writes branch/tag refs pointing directly at a commit) but
// decodes them so Store.Fetch can read any object type a base repository
// contains. Nothing in this package peels a tag down to the object it
// points at.
type Tag struct {
	Object  plumbing.Hash
	Kind    ObjectType
	Name    string
	Tagger  Signature
	Message string
}

func (t *Tag) Type() ObjectType { return TagObjectType }

func (t *Tag) Encode(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "object %s\n", t.Object)
	fmt.Fprintf(&buf, "type %s\n", t.Kind)
	fmt.Fprintf(&buf, "tag %s\n", t.Name)
	fmt.Fprintf(&buf, "tagger %s\n", t.Tagger)
	buf.WriteByte('\n')
	buf.WriteString(t.Message)
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

func (t *Tag) Decode(_ plumbing.Hash, r io.Reader, size int64) (int, error) {
	br := bufio.NewReader(io.LimitReader(r, size))
	read := 0

	for {
		line, err := br.ReadString('\n')
		read += len(line)
		if err != nil && err != io.EOF {
			return read, fmt.Errorf("gitobj: malformed tag: %w", err)
		}
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			break
		}

		switch {
		case strings.HasPrefix(line, "object "):
			t.Object = plumbing.NewHash(strings.TrimPrefix(line, "object "))
		case strings.HasPrefix(line, "type "):
			kind, kerr := ParseObjectType(strings.TrimPrefix(line, "type "))
			if kerr != nil {
				return read, kerr
			}
			t.Kind = kind
		case strings.HasPrefix(line, "tag "):
			t.Name = strings.TrimPrefix(line, "tag ")
		case strings.HasPrefix(line, "tagger "):
			sig, serr := ParseSignature(strings.TrimPrefix(line, "tagger "))
			if serr != nil {
				return read, serr
			}
			t.Tagger = sig
		}

		if err == io.EOF {
			break
		}
	}

	rest, err := io.ReadAll(br)
	if err != nil {
		return read, fmt.Errorf("gitobj: malformed tag message: %w", err)
	}
	read += len(rest)
	t.Message = string(rest)
	return read, nil
}
