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

package hydromaputil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spatialmodel/hydromap"
)

func TestInitializeConfig(t *testing.T) {
	cfg := InitializeConfig()
	want := map[string]bool{
		"version":         false,
		"ingest-terrain":  false,
		"ingest-forcings": false,
		"build-uh":        false,
		"simulate":        false,
	}
	for _, c := range cfg.Root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	// Registered defaults are visible through viper.
	if v := cfg.GetFloat64("SOIL_THICKNESS"); v != 2.0 {
		t.Errorf("SOIL_THICKNESS default = %g", v)
	}
	if v := cfg.GetFloat64("UH_BETA"); v != 0.5 {
		t.Errorf("UH_BETA default = %g", v)
	}
}

func TestConfigFileOverridesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.txt")
	if err := os.WriteFile(path, []byte("SOIL_THICKNESS,3.5\n"), 0o666); err != nil {
		t.Fatal(err)
	}
	c, err := hydromap.ReadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg := InitializeConfig()
	if v := cfg.floatOpt(c, "SOIL_THICKNESS"); v != 3.5 {
		t.Errorf("file override = %g, want 3.5", v)
	}
	if v := cfg.floatOpt(c, "STREAM_WIDTH"); v != 5.0 {
		t.Errorf("registry fallback = %g, want 5.0", v)
	}
}

func TestExitCode(t *testing.T) {
	if c := ExitCode(nil); c != 0 {
		t.Errorf("nil error exit code = %d", c)
	}
	if c := ExitCode(errors.New("boom")); c != 1 {
		t.Errorf("plain error exit code = %d", c)
	}
	// ModelError kinds map to their reserved codes.
	_, err := hydromap.ParseDirection(7, 0, 0)
	if err == nil {
		t.Fatal("expected a domain error")
	}
	if c := ExitCode(err); c != 4 {
		t.Errorf("domain error exit code = %d, want 4", c)
	}
}
