package logging_test

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maumercado/orderflow/internal/logging"
)

func captureLog(f func()) string {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer log.SetOutput(orig)
	f()
	return buf.String()
}

func TestLogger_WarnLevelSuppressesInfoAndDebug(t *testing.T) {
	l := logging.New("warn")
	out := captureLog(func() {
		l.Debugf("debug line")
		l.Infof("info line")
		l.Warnf("⚠️ warn line")
		l.Errorf("❌ error line")
	})
	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, "warn line")
	assert.Contains(t, out, "error line")
}

func TestLogger_DebugLevelPassesEverything(t *testing.T) {
	l := logging.New("debug")
	out := captureLog(func() {
		l.Debugf("debug line")
	})
	assert.Contains(t, out, "debug line")
}

func TestLogger_UnrecognizedLevelDefaultsToInfo(t *testing.T) {
	l := logging.New("nonsense")
	out := captureLog(func() {
		l.Debugf("debug line")
		l.Infof("info line")
	})
	assert.NotContains(t, out, "debug line")
	assert.Contains(t, out, "info line")
}
