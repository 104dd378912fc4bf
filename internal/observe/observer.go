// Package observe - точка наблюдения, через которую декодеры сообщают
// каждое прочитанное значение в виде (имя, значение, индексный путь).
package observe

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Observer получает прочитанные значения
type Observer interface {
	Value(name string, value any, index ...int)
}

// Tuple - одно наблюдение
type Tuple struct {
	Name  string
	Value any
	Index []int
}

// Nop отбрасывает всё
var Nop Observer = nopObserver{}

type nopObserver struct{}

func (nopObserver) Value(string, any, ...int) {}

// Recorder накапливает наблюдения в памяти
type Recorder struct {
	mu     sync.Mutex
	tuples []Tuple
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Value(name string, value any, index ...int) {
	idx := append([]int(nil), index...)
	r.mu.Lock()
	r.tuples = append(r.tuples, Tuple{Name: name, Value: value, Index: idx})
	r.mu.Unlock()
}

// Tuples возвращает копию накопленного
func (r *Recorder) Tuples() []Tuple {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Tuple(nil), r.tuples...)
}

// Find возвращает первое наблюдение с таким именем
func (r *Recorder) Find(name string) (Tuple, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tuples {
		if t.Name == name {
			return t, true
		}
	}
	return Tuple{}, false
}

// Has сообщает, было ли наблюдение с таким именем
func (r *Recorder) Has(name string) bool {
	_, ok := r.Find(name)
	return ok
}

// Reset очищает накопленное
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.tuples = nil
	r.mu.Unlock()
}

// TextWriter пишет наблюдения строками вида "[0] [1] Name: value"
type TextWriter struct {
	mu  sync.Mutex
	out io.Writer
	err error
}

func NewTextWriter(out io.Writer) *TextWriter {
	return &TextWriter{out: out}
}

func (w *TextWriter) Value(name string, value any, index ...int) {
	var sb strings.Builder
	for _, i := range index {
		fmt.Fprintf(&sb, "[%d] ", i)
	}
	sb.WriteString(name)
	sb.WriteString(": ")
	fmt.Fprint(&sb, value)
	sb.WriteByte('\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.out, sb.String())
}

// Line пишет произвольную строку (заголовок пакета и т.п.)
func (w *TextWriter) Line(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.out, format+"\n", args...)
}

// Err возвращает первую ошибку записи
func (w *TextWriter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Tee рассылает наблюдения нескольким получателям
func Tee(observers ...Observer) Observer {
	return tee(observers)
}

type tee []Observer

func (t tee) Value(name string, value any, index ...int) {
	for _, o := range t {
		o.Value(name, value, index...)
	}
}

// Indexed возвращает наблюдателя, добавляющего префикс индексного пути
func Indexed(o Observer, prefix ...int) Observer {
	if len(prefix) == 0 {
		return o
	}
	return indexed{o: o, prefix: append([]int(nil), prefix...)}
}

type indexed struct {
	o      Observer
	prefix []int
}

func (i indexed) Value(name string, value any, index ...int) {
	full := make([]int, 0, len(i.prefix)+len(index))
	full = append(full, i.prefix...)
	full = append(full, index...)
	i.o.Value(name, value, full...)
}

// OrNop подставляет Nop вместо nil
func OrNop(o Observer) Observer {
	if o == nil {
		return Nop
	}
	return o
}
