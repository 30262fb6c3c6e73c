package router

import (
	"testing"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/require"
)

func TestElementTableLabelsStartAtOneAndIncrement(t *testing.T) {
	tbl := newElementTable()
	a := tbl.Label(&rod.Element{})
	b := tbl.Label(&rod.Element{})
	require.Equal(t, "e1", a)
	require.Equal(t, "e2", b)
}

func TestElementTableResolveReturnsLabeledElement(t *testing.T) {
	tbl := newElementTable()
	el := &rod.Element{}
	label := tbl.Label(el)

	got, err := tbl.Resolve(label)
	require.NoError(t, err)
	require.Same(t, el, got)
}

func TestElementTableResolveUnknownLabelFails(t *testing.T) {
	tbl := newElementTable()
	_, err := tbl.Resolve("e1")
	require.Error(t, err)
}

func TestElementTableResetClearsLabelsAndCounter(t *testing.T) {
	tbl := newElementTable()
	tbl.Label(&rod.Element{})
	tbl.Label(&rod.Element{})

	tbl.Reset()

	_, err := tbl.Resolve("e1")
	require.Error(t, err, "labels from before a reset are stale")

	fresh := tbl.Label(&rod.Element{})
	require.Equal(t, "e1", fresh, "numbering restarts after reset")
}
