package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadIntFromFile(t *testing.T) {
	// GIVEN
	path := filepath.Join(t.TempDir(), "temp1_input")
	assert.NoError(t, os.WriteFile(path, []byte("42000\n"), 0644))

	// WHEN
	value, err := ReadIntFromFile(path)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 42000, value)
}

func TestReadIntFromFileRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	assert.NoError(t, os.WriteFile(path, []byte(""), 0644))

	_, err := ReadIntFromFile(path)

	assert.Error(t, err)
}

func TestReadIntFromFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage")
	assert.NoError(t, os.WriteFile(path, []byte("not a number\n"), 0644))

	_, err := ReadIntFromFile(path)

	assert.Error(t, err)
}

func TestWriteIntToFileRoundTrips(t *testing.T) {
	// GIVEN
	path := filepath.Join(t.TempDir(), "pwm1")

	// WHEN
	assert.NoError(t, WriteIntToFile(128, path))

	// THEN
	value, err := ReadIntFromFile(path)
	assert.NoError(t, err)
	assert.Equal(t, 128, value)
}

func TestWriteStringToFileAtomic(t *testing.T) {
	// GIVEN
	path := filepath.Join(t.TempDir(), "afancontrol.pid")

	// WHEN
	assert.NoError(t, WriteStringToFileAtomic("12345\n", path))

	// THEN
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "12345\n", string(data))
}

func TestExpandGlobResolvesSingleMatch(t *testing.T) {
	// GIVEN a hwmon style directory whose index varies
	dir := t.TempDir()
	hwmonDir := filepath.Join(dir, "hwmon3")
	assert.NoError(t, os.Mkdir(hwmonDir, 0755))
	sensorPath := filepath.Join(hwmonDir, "temp1_input")
	assert.NoError(t, os.WriteFile(sensorPath, []byte("30000"), 0644))

	// WHEN
	resolved, err := ExpandGlob(filepath.Join(dir, "hwmon*", "temp1_input"))

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, sensorPath, resolved)
}

func TestExpandGlobRejectsNoMatches(t *testing.T) {
	_, err := ExpandGlob(filepath.Join(t.TempDir(), "hwmon*", "temp1_input"))

	assert.Error(t, err)
}

func TestExpandGlobRejectsMultipleMatches(t *testing.T) {
	// GIVEN
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "temp1_input"), []byte("1"), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "temp2_input"), []byte("2"), 0644))

	// WHEN
	_, err := ExpandGlob(filepath.Join(dir, "temp*_input"))

	// THEN
	assert.Error(t, err)
}
