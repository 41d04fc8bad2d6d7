package gitobj

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/antgroup/gitsync/modules/plumbing"
)

// Commit is a git commit object: a tree, zero or more parents, the
// author/committer signatures, and a message.
type Commit struct {
	TreeHash  plumbing.Hash
	Parents   []plumbing.Hash
	Author    Signature
	Committer Signature
	Message   string
}

func (c *Commit) Type() ObjectType { return CommitObjectType }

func (c *Commit) Encode(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.TreeHash)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "committer %s\n", c.Committer)
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

func (c *Commit) Decode(_ plumbing.Hash, r io.Reader, size int64) (int, error) {
	br := bufio.NewReader(io.LimitReader(r, size))
	read := 0

	for {
		line, err := br.ReadString('\n')
		read += len(line)
		if err != nil && err != io.EOF {
			return read, fmt.Errorf("gitobj: malformed commit: %w", err)
		}
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			break
		}

		switch {
		case strings.HasPrefix(line, "tree "):
			c.TreeHash = plumbing.NewHash(strings.TrimPrefix(line, "tree "))
		case strings.HasPrefix(line, "parent "):
			c.Parents = append(c.Parents, plumbing.NewHash(strings.TrimPrefix(line, "parent ")))
		case strings.HasPrefix(line, "author "):
			sig, perr := ParseSignature(strings.TrimPrefix(line, "author "))
			if perr != nil {
				return read, perr
			}
			c.Author = sig
		case strings.HasPrefix(line, "committer "):
			sig, perr := ParseSignature(strings.TrimPrefix(line, "committer "))
			if perr != nil {
				return read, perr
			}
			c.Committer = sig
		}

		if err == io.EOF {
			break
		}
	}

	rest, err := io.ReadAll(br)
	if err != nil {
		return read, fmt.Errorf("gitobj: malformed commit message: %w", err)
	}
	read += len(rest)
	c.Message = string(rest)
	return read, nil
}
