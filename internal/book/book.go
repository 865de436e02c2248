package book

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Key identifies a book independent of case and whitespace in the request.
type Key struct {
	Title  string
	Author string
}

// NewKey case-folds title and author and collapses runs of whitespace.
func NewKey(title, author string) Key {
	return Key{
		Title:  normalize(title),
		Author: normalize(author),
	}
}

// String renders the key for cache and single-flight lookup. The title is
// length-prefixed so no (title, author) pair can collide with another.
func (k Key) String() string {
	return strconv.Itoa(len(k.Title)) + ":" + k.Title + k.Author
}

func normalize(s string) string {
	// cases.Caser holds state, so each call gets its own.
	folded := cases.Fold().String(s)
	return strings.Join(strings.Fields(folded), " ")
}

// Book is the full extracted text of one book. It is never modified after
// construction.
type Book struct {
	Key   Key
	runes []rune
	text  string
}

// New builds a Book from extracted text.
func New(key Key, text string) *Book {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	return &Book{
		Key:   key,
		runes: []rune(text),
		text:  text,
	}
}

// Text returns the full extracted text.
func (b *Book) Text() string {
	return b.text
}

// Len is the length of the text in code points.
func (b *Book) Len() int {
	return len(b.runes)
}
