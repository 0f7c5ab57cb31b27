package cookies

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDocument() (*Document, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewDocument(clock, time.Hour), clock
}

func TestDocumentSetGet(t *testing.T) {
	doc, _ := newTestDocument()

	require.NoError(t, doc.Set("reservoir", "sayano-shushenskoe"))
	v, ok := doc.Get("reservoir")
	assert.True(t, ok)
	assert.Equal(t, "sayano-shushenskoe", v)

	require.NoError(t, doc.Set("reservoir", "krasnoyarskoe"))
	v, ok = doc.Get("reservoir")
	assert.True(t, ok)
	assert.Equal(t, "krasnoyarskoe", v)
	assert.Equal(t, "reservoir=krasnoyarskoe", doc.Cookie())
}

func TestDocumentEncodesValues(t *testing.T) {
	doc, _ := newTestDocument()

	require.NoError(t, doc.Set("name", "Саяно-Шушенское водохранилище"))
	assert.NotContains(t, doc.Cookie(), " ")

	v, ok := doc.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "Саяно-Шушенское водохранилище", v)
}

func TestDocumentExactNameMatch(t *testing.T) {
	doc, _ := newTestDocument()
	require.NoError(t, doc.Set("kk", "1"))

	_, ok := doc.Get("k")
	assert.False(t, ok)

	require.NoError(t, doc.Set("k", "2"))
	v, ok := doc.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Equal(t, "kk=1; k=2", doc.Cookie())
}

func TestDocumentMissingCookie(t *testing.T) {
	doc, _ := newTestDocument()

	v, ok := doc.Get("reservoir")
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestDocumentExpiry(t *testing.T) {
	doc, clock := newTestDocument()
	require.NoError(t, doc.Set("reservoir", "bratskoe"))

	clock.Advance(59 * time.Minute)
	_, ok := doc.Get("reservoir")
	assert.True(t, ok)

	clock.Advance(time.Minute)
	_, ok = doc.Get("reservoir")
	assert.False(t, ok)
	assert.Empty(t, doc.Cookie())
}

func TestDocumentSetCookieMaxAge(t *testing.T) {
	doc, _ := newTestDocument()

	doc.SetCookie("a=1; path=/; max-age=60")
	_, ok := doc.Get("a")
	assert.True(t, ok)

	doc.SetCookie("a=1; path=/; max-age=0")
	_, ok = doc.Get("a")
	assert.False(t, ok)

	doc.SetCookie("=orphan")
	assert.Empty(t, doc.Cookie())
}

func TestDocumentDefaultTTL(t *testing.T) {
	doc := NewDocument(nil, 0)
	assert.Equal(t, DefaultTTL, doc.TTL())
	assert.Equal(t, int64(31536000), int64(DefaultTTL/time.Second))
}

func TestDocumentRejectsInvalidName(t *testing.T) {
	doc, _ := newTestDocument()
	assert.Error(t, doc.Set("", "x"))
	assert.Error(t, doc.Set("a=b", "x"))
}

func TestLookupMalformed(t *testing.T) {
	testData := map[string]struct {
		cookie   string
		name     string
		expected string
		found    bool
	}{
		"bad escape":      {cookie: "reservoir=%E0%A4%A", name: "reservoir"},
		"empty":           {cookie: "", name: "reservoir"},
		"last one wins":   {cookie: "reservoir=x; a=1; reservoir=y", name: "reservoir", expected: "y", found: true},
		"plain values":    {cookie: "a=1; reservoir=x", name: "reservoir", expected: "x", found: true},
		"prefix mismatch": {cookie: "reservoirs=x", name: "reservoir"},
		"empty value":     {cookie: "reservoir=", name: "reservoir", expected: "", found: true},
		"other bad entry": {cookie: "other=%zz; reservoir=sayano", name: "reservoir", expected: "sayano", found: true},
		"decoded value":   {cookie: "reservoir=%D0%91%D1%80%D0%B0%D1%82%D1%81%D0%BA", name: "reservoir", expected: "Братск", found: true},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			v, ok := Lookup(td.cookie, td.name)
			assert.Equal(t, td.found, ok)
			assert.Equal(t, td.expected, v)
		})
	}
}

func TestDocumentValueCannotInjectCookies(t *testing.T) {
	doc, _ := newTestDocument()

	require.NoError(t, doc.Set("note", "a; reservoir=evil"))

	_, ok := doc.Get("reservoir")
	assert.False(t, ok)
	v, ok := doc.Get("note")
	require.True(t, ok)
	assert.Equal(t, "a; reservoir=evil", v)
}

func TestDocumentMalformedEntryHidesOnlyItself(t *testing.T) {
	doc, _ := newTestDocument()

	require.NoError(t, doc.Set("reservoir", "sayano"))
	doc.SetCookie("other=%zz; path=/")

	v, ok := doc.Get("reservoir")
	require.True(t, ok)
	assert.Equal(t, "sayano", v)

	_, ok = doc.Get("other")
	assert.False(t, ok)
}

func TestPreferenceHelpers(t *testing.T) {
	doc, _ := newTestDocument()

	assert.False(t, CookieAlertDismissed(doc))
	require.NoError(t, DismissCookieAlert(doc))
	assert.True(t, CookieAlertDismissed(doc))

	assert.Empty(t, SelectedReservoir(doc))
	require.NoError(t, RememberReservoir(doc, "ust-ilimskoe"))
	assert.Equal(t, "ust-ilimskoe", SelectedReservoir(doc))
}
