// Package replay keeps an append-only file of sealed tail input bundles so
// that a failed proof can be reproduced from the exact bytes it was given.
package replay

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/kysee/zkp-tail/zk-tail/kernel"
	"github.com/kysee/zkp-tail/zk-tail/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const entryVersion = 1

var (
	ErrNotFound = errors.New("replay entry not found")
	ErrCorrupt  = errors.New("replay entry corrupt")
)

var logger = zerolog.New(os.Stderr).With().Timestamp().Str("module", "replay").Logger()

// Entry is one sealed bundle. Sealed is the bundle encoding under
// ChaCha20-Poly1305 with Digest as associated data.
type Entry struct {
	Version uint8
	Digest  types.Fr
	Sealed  []byte
}

func (e *Entry) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, []interface{}{
		e.Version,
		e.Digest[:],
		e.Sealed,
	})
}

func (e *Entry) DecodeRLP(s *rlp.Stream) error {
	var temp struct {
		Version uint8
		Digest  []byte
		Sealed  []byte
	}
	if err := s.Decode(&temp); err != nil {
		return err
	}
	if temp.Version != entryVersion {
		return errors.Wrapf(ErrCorrupt, "entry version %d", temp.Version)
	}
	digest, err := types.FrFromBytes(temp.Digest)
	if err != nil {
		return errors.Wrap(ErrCorrupt, err.Error())
	}
	e.Version = temp.Version
	e.Digest = digest
	e.Sealed = temp.Sealed
	return nil
}

type Log struct {
	mtx    sync.Mutex
	path   string
	secret []byte
	file   *os.File
}

// Open opens or creates the log at path.
func Open(path string, secret []byte) (*Log, error) {
	if len(secret) != SecretSize {
		return nil, errors.Errorf("replay secret must be %d bytes, got %d", SecretSize, len(secret))
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "open replay log")
	}
	return &Log{
		path:   path,
		secret: append([]byte{}, secret...),
		file:   f,
	}, nil
}

func (l *Log) Close() error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.file.Close()
}

// Append seals t and writes it to the end of the log. It returns the digest
// that identifies the entry.
func (l *Log) Append(t *kernel.TailInputs) (types.Fr, error) {
	bz := t.Encode()
	digest := t.Digest()
	sealed, err := seal(l.secret, digest, bz)
	if err != nil {
		return types.Fr{}, err
	}
	e := &Entry{Version: entryVersion, Digest: digest, Sealed: sealed}

	var buf bytes.Buffer
	if err := e.EncodeRLP(&buf); err != nil {
		return types.Fr{}, errors.Wrap(err, "encode replay entry")
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()
	if _, err := l.file.Write(buf.Bytes()); err != nil {
		return types.Fr{}, errors.Wrap(err, "write replay entry")
	}
	if err := l.file.Sync(); err != nil {
		return types.Fr{}, errors.Wrap(err, "sync replay log")
	}
	logger.Debug().Str("digest", digest.String()).Int("size", len(bz)).Msg("bundle recorded")
	return digest, nil
}

// Entries returns all entries in the order they were appended.
func (l *Log) Entries() ([]Entry, error) {
	l.mtx.Lock()
	bz, err := os.ReadFile(l.path)
	l.mtx.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "read replay log")
	}

	var entries []Entry
	s := rlp.NewStream(bytes.NewReader(bz), uint64(len(bz)))
	for {
		var e Entry
		err := s.Decode(&e)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(ErrCorrupt, "entry %d: %v", len(entries), err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Load returns the bundle recorded under digest. The latest entry wins when
// the same bundle was recorded twice.
func (l *Log) Load(digest types.Fr) (*kernel.TailInputs, error) {
	entries, err := l.Entries()
	if err != nil {
		return nil, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Digest != digest {
			continue
		}
		return l.open(&entries[i])
	}
	return nil, errors.Wrapf(ErrNotFound, "digest %s", digest)
}

func (l *Log) open(e *Entry) (*kernel.TailInputs, error) {
	bz, err := open(l.secret, e.Digest, e.Sealed)
	if err != nil {
		return nil, err
	}
	t, err := kernel.Decode(bz)
	if err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "entry %s: %v", e.Digest, err)
	}
	if t.Digest() != e.Digest {
		return nil, errors.Wrapf(ErrCorrupt, "entry %s: digest mismatch", e.Digest)
	}
	return t, nil
}
