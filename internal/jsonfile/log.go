// Package jsonfile guarda uma sequência de registros como um único array JSON
// em disco, reescrito por inteiro a cada append (temp + rename).
package jsonfile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

// ErrWrite envolve qualquer falha ao persistir o snapshot.
var ErrWrite = errors.New("jsonfile: write failed")

var codec = sonic.Config{
	EscapeHTML:       false,
	SortMapKeys:      true,
	CompactMarshaler: true,
}.Froze()

// Log é um log append-only de registros T. Um único lock cobre a memória e a
// reescrita do arquivo; leitores nunca leem o arquivo depois do Open.
type Log[T any] struct {
	mu    sync.RWMutex
	path  string
	items []T
	perm  fs.FileMode
}

type Option func(*options)

type options struct {
	perm fs.FileMode
}

func WithPerm(perm fs.FileMode) Option {
	return func(o *options) { o.perm = perm }
}

// Open carrega path se existir. Arquivo ausente, vazio ou inválido vira log
// vazio; o caso inválido é registrado como warning e nunca é fatal.
func Open[T any](path string, opts ...Option) *Log[T] {
	o := options{perm: 0o644}
	for _, opt := range opts {
		opt(&o)
	}
	l := &Log[T]{path: path, perm: o.perm}

	items, err := load[T](path)
	switch {
	case err == nil:
		l.items = items
	case errors.Is(err, fs.ErrNotExist):
		log.WithField("path", path).Debug("jsonfile: no snapshot yet, starting empty")
	default:
		log.WithError(err).WithField("path", path).Warn("jsonfile: unreadable snapshot, starting empty")
	}
	return l
}

func load[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var items []T
	if err := codec.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return items, nil
}

func (l *Log[T]) Path() string { return l.path }

// Append adiciona os registros e reescreve o arquivo inteiro. Se a escrita
// falhar, a memória volta ao estado anterior e o erro (ErrWrite) é devolvido.
func (l *Log[T]) Append(items ...T) error {
	if len(items) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev := len(l.items)
	l.items = append(l.items, items...)
	if err := l.flush(); err != nil {
		clear(l.items[prev:])
		l.items = l.items[:prev]
		return err
	}
	return nil
}

// flush grava o snapshot completo. Chamar com mu travado.
func (l *Log[T]) flush() error {
	items := l.items
	if items == nil {
		items = []T{}
	}
	data, err := codec.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrWrite, err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.Chmod(tmpName, l.perm); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

func (l *Log[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Snapshot devolve uma cópia dos registros, do mais antigo ao mais novo.
func (l *Log[T]) Snapshot() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Scan percorre os registros em ordem sob o lock de leitura até fn devolver false.
// fn não pode chamar Append.
func (l *Log[T]) Scan(fn func(T) bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, it := range l.items {
		if !fn(it) {
			return
		}
	}
}
