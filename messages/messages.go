// Package messages resolves client-side message ids into localized text.
//
// Message ids are stable strings such as SOURCE_IS_NULL. Arguments are
// substituted with fmt verbs by golang.org/x/text/message. When the
// requested language has no translation, English is used.
package messages

import (
	"fmt"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message ids used by the client.
const (
	SourceIsNull      = "SOURCE_IS_NULL"
	SessionIsNull     = "SESSION_IS_NULL"
	TableIsNull       = "TABLE_IS_NULL"
	KeepAliveBelowMin = "KEEPALIVE_BELOW_MIN"
	NotConnected      = "NOT_CONNECTED"
	RecordIsNull      = "RECORD_IS_NULL"
	DescribeFailed    = "DESCRIBE_FAILED"
)

var english = map[string]string{
	SourceIsNull:      "%s: source cannot be empty",
	SessionIsNull:     "%s: session cannot be nil",
	TableIsNull:       "%s: table cannot be nil",
	KeepAliveBelowMin: "negotiated session timeout %d is below the keep-alive minimum %d",
	NotConnected:      "%s requires a connected session",
	RecordIsNull:      "%s: record cannot be nil",
	DescribeFailed:    "unable to describe %s: %s",
}

var norwegian = map[string]string{
	SourceIsNull:      "%s: kilde kan ikke være tom",
	SessionIsNull:     "%s: sesjon kan ikke være nil",
	TableIsNull:       "%s: tabell kan ikke være nil",
	KeepAliveBelowMin: "forhandlet sesjonstimeout %d er under minimum for keep-alive %d",
	NotConnected:      "%s krever en tilkoblet sesjon",
	RecordIsNull:      "%s: post kan ikke være nil",
	DescribeFailed:    "kan ikke beskrive %s: %s",
}

var (
	buildOnce sync.Once
	builder   *catalog.Builder
	matcher   language.Matcher
	supported []language.Tag
)

func build() {
	builder = catalog.NewBuilder(catalog.Fallback(language.English))

	bundles := []struct {
		tag      language.Tag
		messages map[string]string
	}{
		{language.English, english},
		{language.Norwegian, norwegian},
	}

	for _, b := range bundles {
		for id, msg := range b.messages {
			// SetString only fails on malformed tags
			_ = builder.SetString(b.tag, id, msg)
		}
		supported = append(supported, b.tag)
	}

	matcher = language.NewMatcher(supported)
}

// Catalog resolves message ids for one language.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a Catalog for the given BCP 47 language ("en", "nb-NO", ...).
// Unknown or empty languages fall back to English.
func New(lang string) *Catalog {
	buildOnce.Do(build)

	tag := language.English
	if lang != "" {
		if requested, err := language.Parse(lang); err == nil {
			_, idx, conf := matcher.Match(requested)
			if conf != language.No {
				tag = supported[idx]
			}
		}
	}

	return &Catalog{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(builder)),
	}
}

// Language returns the language the catalog resolves to.
func (c *Catalog) Language() language.Tag {
	return c.tag
}

// Resolve returns the localized message for id with args substituted.
func (c *Catalog) Resolve(id string, args ...interface{}) string {
	if _, ok := english[id]; !ok {
		return fmt.Sprintf("unknown message %s", id)
	}
	return c.printer.Sprintf(id, args...)
}

// Resolve is a convenience for New("").Resolve.
func Resolve(id string, args ...interface{}) string {
	return New("").Resolve(id, args...)
}
