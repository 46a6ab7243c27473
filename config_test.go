/*
Copyright © 2024 the hydromap authors.
This file is part of hydromap.

hydromap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

hydromap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with hydromap.  If not, see <http://www.gnu.org/licenses/>.
*/

package hydromap

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.txt")
	if err := os.WriteFile(path, []byte(content), 0o666); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadConfig(t *testing.T) {
	path := writeConfig(t, `# global configuration
START_YEAR,1990
STEP_TIME,24   # hours
PATH_OUT,/tmp/out
WT_INIT,0.3
OUT_Rs,1
`)
	cfg, err := ReadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Int("START_YEAR"); got != 1990 {
		t.Errorf("START_YEAR = %d", got)
	}
	if got := cfg.Int("STEP_TIME"); got != 24 {
		t.Errorf("STEP_TIME = %d (inline comment not stripped?)", got)
	}
	if got := cfg.Str("PATH_OUT"); got != "/tmp/out" {
		t.Errorf("PATH_OUT = %q", got)
	}
	if got := cfg.Float("WT_INIT"); got != 0.3 {
		t.Errorf("WT_INIT = %g", got)
	}
	if !cfg.Flag("OUT_Rs", false) {
		t.Error("OUT_Rs flag not set")
	}
	if cfg.Flag("OUT_ET_o", true) != true || cfg.Flag("OUT_ET_u", false) != false {
		t.Error("flag defaults not honored")
	}
	if err := cfg.Err(); err != nil {
		t.Fatal(err)
	}
}

func TestReadConfigMissingKey(t *testing.T) {
	path := writeConfig(t, "STEP_TIME,24\n")
	cfg, err := ReadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Str("FP_GEO")
	err = cfg.Err()
	if err == nil {
		t.Fatal("expected an error for the missing key")
	}
	me, ok := err.(*ModelError)
	if !ok || me.Kind != ConfigError {
		t.Fatalf("got %v, want a ConfigError", err)
	}
	if me.Kind.ExitCode() != 2 {
		t.Errorf("ConfigError exit code = %d, want 2", me.Kind.ExitCode())
	}
}

func TestReadConfigMalformed(t *testing.T) {
	path := writeConfig(t, "THIS LINE HAS NO COMMA\n")
	if _, err := ReadConfig(path); err == nil {
		t.Fatal("expected an error for the malformed line")
	} else if me, ok := err.(*ModelError); !ok || me.Kind != ConfigError || me.Line != 1 {
		t.Fatalf("got %v, want a ConfigError at line 1", err)
	}
}

func TestConfigRangeCheck(t *testing.T) {
	path := writeConfig(t, "UH_BETA,1.7\n")
	cfg, err := ReadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	v := cfg.Float("UH_BETA")
	cfg.RangeCheck("UH_BETA", v, 0, 1)
	if cfg.Err() == nil {
		t.Error("expected an out-of-range error")
	}
}
