package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLexicon(t *testing.T) {
	assert := assert.New(t)

	lex := Default()
	assert.NotEmpty(lex.Categories())
	assert.Contains(lex.Categories(), "violence")

	count, terms := lex.MatchCategory("violence", "i will kill and destroy everything")
	assert.Equal(2, count)
	assert.Equal([]string{"kill", "destroy"}, terms)

	// a term only counts once no matter how often it repeats
	count, _ = lex.MatchCategory("violence", "kill kill kill kill")
	assert.Equal(1, count)

	count, terms = lex.MatchCategory("violence", "have a lovely day")
	assert.Equal(0, count)
	assert.Empty(terms)

	// unknown category matches nothing
	count, _ = lex.MatchCategory("bogus", "kill")
	assert.Equal(0, count)
}

func TestLoadFromFileJSON(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "lexicon.json")
	blob := `{"spam": ["Buy Now", "  free money "], "empty": ["", "  "]}`
	assert.NoError(os.WriteFile(path, []byte(blob), 0644))

	lex, err := LoadFromFileJSON(path)
	assert.NoError(err)
	assert.Equal([]string{"spam"}, lex.Categories())

	// terms are lowercased and trimmed on load
	count, terms := lex.MatchCategory("spam", "wow, buy now and get free money")
	assert.Equal(2, count)
	assert.Equal([]string{"buy now", "free money"}, terms)

	_, err = LoadFromFileJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(err)

	empty := filepath.Join(t.TempDir(), "empty.json")
	assert.NoError(os.WriteFile(empty, []byte(`{}`), 0644))
	_, err = LoadFromFileJSON(empty)
	assert.Error(err)
}
