package datagen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(Options{Count: 20, Seed: 42, DirtyRatio: 0.3})
	b := Generate(Options{Count: 20, Seed: 42, DirtyRatio: 0.3})
	assert.Equal(t, a, b)
	assert.Equal(t, a[0].CreatedAt, b[0].CreatedAt)

	c := Generate(Options{Count: 20, Seed: 43, DirtyRatio: 0.3})
	assert.NotEqual(t, a, c)
}

func TestGenerateShape(t *testing.T) {
	providers := Generate(Options{Count: 50, Seed: 1})
	require.Len(t, providers, 50)

	npiRe := regexp.MustCompile(`^1\d{9}$`)
	zipRe := regexp.MustCompile(`^\d{5}$`)
	for _, p := range providers {
		assert.NotEmpty(t, p.ID)
		assert.Regexp(t, npiRe, p.NPI)
		assert.NotEmpty(t, p.FirstName)
		assert.NotEmpty(t, p.LastName)
		assert.NotEmpty(t, p.Specialty)
		assert.Regexp(t, zipRe, p.Address.Zip)
		assert.NotEmpty(t, p.Phone)
	}
}

func TestGenerateDirtyRatio(t *testing.T) {
	clean := Generate(Options{Count: 100, Seed: 7, DirtyRatio: 0})
	for _, p := range clean {
		assert.NotEmpty(t, p.PracticeName)
	}

	dirty := Generate(Options{Count: 100, Seed: 7, DirtyRatio: 1})
	missingPractice := 0
	for _, p := range dirty {
		if p.PracticeName == "" {
			missingPractice++
		}
	}
	// A third of fully dirty records drop the practice name.
	assert.Greater(t, missingPractice, 10)
}

func TestGenerateEmpty(t *testing.T) {
	assert.Nil(t, Generate(Options{Count: 0, Seed: 1}))
}
