package publish

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Artifact is unlinked creation bytecode in the solc artifact format:
// a hex object in which library call sites are placeholders, plus the
// byte offsets of every placeholder keyed by the fully qualified name
// ("path/to/File.sol:Library") of the library that belongs there.
//
// Artifacts are immutable; Link returns a new Artifact.
type Artifact struct {
	object string
	refs   map[string]map[string][]LinkOffset
}

// LinkOffset locates one library placeholder within the bytecode.
type LinkOffset struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

type artifactJSON struct {
	Object         string                             `json:"object"`
	LinkReferences map[string]map[string][]LinkOffset `json:"linkReferences"`
}

// ParseArtifact decodes a solc bytecode artifact. The object is kept in
// hex form until Resolve, because an unlinked object contains placeholder
// markers that are not valid hex.
func ParseArtifact(data []byte) (*Artifact, error) {
	var raw artifactJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse bytecode artifact: %w", err)
	}
	object := strings.TrimPrefix(raw.Object, "0x")
	if object == "" {
		return nil, fmt.Errorf("parse bytecode artifact: empty bytecode object")
	}
	for file, libs := range raw.LinkReferences {
		for lib, offsets := range libs {
			for _, o := range offsets {
				if o.Length != common.AddressLength {
					return nil, fmt.Errorf("parse bytecode artifact: %s:%s reference length %d, want %d", file, lib, o.Length, common.AddressLength)
				}
				if o.Start < 0 || (o.Start+o.Length)*2 > len(object) {
					return nil, fmt.Errorf("parse bytecode artifact: %s:%s reference at %d out of range", file, lib, o.Start)
				}
			}
		}
	}
	return &Artifact{object: object, refs: raw.LinkReferences}, nil
}

// MustParseArtifact is for build-embedded artifacts, where a parse failure
// means the binary itself is broken.
func MustParseArtifact(data []byte) *Artifact {
	a, err := ParseArtifact(data)
	if err != nil {
		panic(err)
	}
	return a
}

// Link substitutes addr at every offset recorded for the fully qualified
// library name and returns the result. References to other libraries are
// left untouched; if the artifact has no reference to qualifiedName, Link
// is a no-op.
func (a *Artifact) Link(qualifiedName string, addr common.Address) *Artifact {
	file, lib, ok := splitQualifiedName(qualifiedName)
	if !ok {
		return a
	}
	offsets, ok := a.refs[file][lib]
	if !ok {
		return a
	}

	object := []byte(a.object)
	addrHex := hex.EncodeToString(addr.Bytes())
	for _, o := range offsets {
		copy(object[o.Start*2:], addrHex)
	}

	refs := make(map[string]map[string][]LinkOffset, len(a.refs))
	for f, libs := range a.refs {
		for l, offs := range libs {
			if f == file && l == lib {
				continue
			}
			if refs[f] == nil {
				refs[f] = make(map[string][]LinkOffset)
			}
			refs[f][l] = offs
		}
	}

	return &Artifact{object: string(object), refs: refs}
}

// Resolve asserts that no link references remain and returns the
// deployable creation bytecode. If any reference is unresolved it returns
// a *LinkError naming the first one.
func (a *Artifact) Resolve() ([]byte, error) {
	if names := a.unresolved(); len(names) > 0 {
		return nil, &LinkError{Ref: names[0]}
	}
	if i := strings.Index(a.object, "__"); i >= 0 {
		// Placeholder bytes without a matching link reference entry:
		// the artifact itself is malformed.
		return nil, fmt.Errorf("bytecode contains unreferenced placeholder at byte %d", i/2)
	}
	code, err := hex.DecodeString(a.object)
	if err != nil {
		return nil, fmt.Errorf("decode linked bytecode: %w", err)
	}
	return code, nil
}

// Unlinked reports whether any link references remain.
func (a *Artifact) Unlinked() bool {
	return len(a.unresolved()) > 0
}

func (a *Artifact) unresolved() []string {
	var names []string
	for file, libs := range a.refs {
		for lib := range libs {
			names = append(names, file+":"+lib)
		}
	}
	sort.Strings(names)
	return names
}

func splitQualifiedName(qualifiedName string) (file, lib string, ok bool) {
	i := strings.LastIndex(qualifiedName, ":")
	if i < 0 {
		return "", "", false
	}
	return qualifiedName[:i], qualifiedName[i+1:], true
}

// LinkError reports a library reference still unresolved at Resolve time.
type LinkError struct {
	// Ref is the fully qualified name of the unresolved library.
	Ref string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("unresolved link reference: %s", e.Ref)
}
