package hpgl

import (
	"io"
	"sync"
)

// Document holds the current parse result of an application.
//
// Every method swaps the whole Result under a lock, so a reader
// always sees either the old or the new state.
type Document struct {
	mx  sync.RWMutex
	res *Result
	opt ParseOptions
}

func NewDocument(opt ParseOptions) *Document {
	return &Document{res: &Result{}, opt: opt}
}

// Result returns the current result; never nil.
func (d *Document) Result() *Result {
	d.mx.RLock()
	defer d.mx.RUnlock()
	if d.res == nil {
		return &Result{}
	}
	return d.res
}

// Load parses r and replaces the current result. On error the
// current result is kept.
func (d *Document) Load(r io.Reader) (*Result, error) {
	res, err := ParseReader(r, d.opt)
	if err != nil {
		return nil, err
	}
	d.mx.Lock()
	d.res = res
	d.mx.Unlock()
	return res, nil
}

// Options returns the parse options Load uses.
func (d *Document) Options() ParseOptions { return d.opt }

// Replace swaps in res, typically parsed and transformed elsewhere so
// readers never see it half prepared. A nil res clears the document.
func (d *Document) Replace(res *Result) {
	if res == nil {
		res = &Result{}
	}
	d.mx.Lock()
	d.res = res
	d.mx.Unlock()
}

func (d *Document) apply(fn func(*Result) (*Result, error)) (*Result, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.res == nil {
		d.res = &Result{}
	}
	res, err := fn(d.res)
	if err != nil {
		return d.res, err
	}
	d.res = res
	return res, nil
}

func (d *Document) Scale(factor float64) *Result {
	res, _ := d.apply(func(r *Result) (*Result, error) { return r.Scale(factor), nil })
	return res
}

func (d *Document) Center(width, height int) (*Result, error) {
	return d.apply(func(r *Result) (*Result, error) { return r.Center(width, height) })
}

func (d *Document) Fit(width, height int) (*Result, error) {
	return d.apply(func(r *Result) (*Result, error) { return r.Fit(width, height) })
}
