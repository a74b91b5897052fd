package x11

import (
	"testing"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halpix/viewport/video"
)

func TestClipboardStoreAndReadBack(t *testing.T) {
	t.Parallel()
	fw := newFakeWire()
	_, drv, _, _ := testDriver(t, video.Options{}, fw)

	require.NoError(t, drv.SetClipboardText("hello"))
	stored := fw.changed[propKey{drv.root, xproto.AtomCutBuffer0}]
	assert.Equal(t, []byte("hello"), stored.data)
	assert.Equal(t, xproto.Atom(xproto.AtomString), stored.typ)
	assert.Equal(t, testXWindow, fw.owner)

	// we own PRIMARY, so the read goes straight to the cut buffer
	fw.props[propKey{drv.root, xproto.AtomCutBuffer0}] = propVal{data: stored.data, typ: xproto.AtomString}
	got, err := drv.GetClipboardText()
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, 0, fw.converted)
}

func TestClipboardTranslatesLatin1(t *testing.T) {
	t.Parallel()
	fw := newFakeWire()
	_, drv, _, _ := testDriver(t, video.Options{}, fw)
	// a foreign client left Latin-1 bytes: "déjà"
	fw.props[propKey{drv.root, xproto.AtomCutBuffer0}] = propVal{
		data: []byte{'d', 0xe9, 'j', 0xe0},
		typ:  xproto.AtomString,
	}
	got, err := drv.GetClipboardText()
	require.NoError(t, err)
	assert.Equal(t, "déjà", got)
}

func TestClipboardForeignOwnerAnswered(t *testing.T) {
	t.Parallel()
	fw := newFakeWire()
	_, drv, _, _ := testDriver(t, video.Options{}, fw)
	fw.owner = 900 // somebody else owns PRIMARY
	// their converted answer lands in our selection property
	fw.props[propKey{testXWindow, drv.atoms.selection}] = propVal{data: []byte("shared"), typ: xproto.AtomString}
	fw.push(xproto.SelectionNotifyEvent{Requestor: testXWindow, Selection: xproto.AtomPrimary})

	got, err := drv.GetClipboardText()
	require.NoError(t, err)
	assert.Equal(t, "shared", got)
	assert.Equal(t, 1, fw.converted)
	assert.False(t, drv.selectionWaiting)
}

func TestClipboardOwnerTimeout(t *testing.T) {
	t.Parallel()
	fw := newFakeWire()
	_, drv, _, clk := testDriver(t, video.Options{}, fw)
	clk.step = 100 * time.Millisecond // every clock read moves time forward
	fw.owner = 900
	fw.props[propKey{drv.root, xproto.AtomCutBuffer0}] = propVal{data: []byte("stale"), typ: xproto.AtomString}

	got, err := drv.GetClipboardText()
	require.NoError(t, err)
	assert.Equal(t, "stale", got) // fell back to the cut buffer
	assert.False(t, drv.selectionWaiting)
}

func TestClipboardEmptyWithoutData(t *testing.T) {
	t.Parallel()
	fw := newFakeWire()
	_, drv, _, _ := testDriver(t, video.Options{}, fw)
	got, err := drv.GetClipboardText()
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestSelectionRequestServed(t *testing.T) {
	t.Parallel()
	fw := newFakeWire()
	dev, drv, _, _ := testDriver(t, video.Options{}, fw)
	fw.props[propKey{drv.root, xproto.AtomCutBuffer0}] = propVal{data: []byte("hello"), typ: xproto.AtomString}
	fw.push(xproto.SelectionRequestEvent{
		Time:      42,
		Owner:     testXWindow,
		Requestor: 500,
		Selection: xproto.AtomPrimary,
		Target:    xproto.AtomString,
		Property:  777,
	})
	drv.PumpEvents()
	assert.Empty(t, dev.DrainEvents())

	written := fw.changed[propKey{500, 777}]
	assert.Equal(t, []byte("hello"), written.data)
	assert.Equal(t, xproto.Atom(xproto.AtomString), written.typ)

	require.Len(t, fw.sentEvents, 1)
	raw := fw.sentEvents[0].raw
	assert.Equal(t, xproto.Window(500), fw.sentEvents[0].dst)
	assert.Equal(t, byte(31), raw[0]) // SelectionNotify
	assert.Equal(t, uint32(777), xgb.Get32(raw[20:]))
	assert.Equal(t, 1, fw.syncs)
}

func TestSelectionRequestUnservableTarget(t *testing.T) {
	t.Parallel()
	fw := newFakeWire()
	_, drv, _, _ := testDriver(t, video.Options{}, fw)
	fw.props[propKey{drv.root, xproto.AtomCutBuffer0}] = propVal{data: []byte("hello"), typ: xproto.AtomString}
	fw.push(xproto.SelectionRequestEvent{
		Owner:     testXWindow,
		Requestor: 500,
		Selection: xproto.AtomPrimary,
		Target:    drv.atoms.utf8String,
		Property:  777,
	})
	drv.PumpEvents()

	_, wrote := fw.changed[propKey{500, 777}]
	assert.False(t, wrote)
	require.Len(t, fw.sentEvents, 1)
	// property None tells the requestor the conversion failed
	assert.Equal(t, uint32(0), xgb.Get32(fw.sentEvents[0].raw[20:]))
}
