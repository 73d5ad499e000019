// Package script runs Lua episode source scripts.
//
// A script defines a global EpisodeSources(id) function returning a table shaped like the
// episode sources JSON input. Scripts have access to the mangal-lua-libs modules and to an
// http_tls module that fetches with a Chrome TLS fingerprint.
package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/filesystem"
	"github.com/anisan-cli/anistream/internal/scraper"
	"github.com/anisan-cli/anistream/source"
	"github.com/anisan-cli/anistream/util"
	"github.com/anisan-cli/anistream/where"
	libs "github.com/metafates/mangal-lua-libs"
	"github.com/samber/lo"
	lua "github.com/yuin/gopher-lua"
)

// Extension of episode source scripts.
const Extension = ".lua"

// Script is a loaded episode source script. A Lua state is not safe for concurrent use,
// calls are serialized.
type Script struct {
	name  string
	mu    sync.Mutex
	state *lua.LState
}

// Load compiles and runs the script at path and checks that it defines EpisodeSources.
func Load(path string) (*Script, error) {
	state := lua.NewState()
	libs.Preload(state)
	registerTLSClient(state)

	if err := scraper.PreCompileAndLoad(state, path); err != nil {
		state.Close()
		return nil, err
	}

	name := util.FileStem(path)
	if state.GetGlobal(constant.EpisodeSourcesFn).Type() != lua.LTFunction {
		state.Close()
		return nil, fmt.Errorf("function %s is required but not defined in %s", constant.EpisodeSourcesFn, name)
	}

	return &Script{name: name, state: state}, nil
}

// Find loads the installed script with the given name.
func Find(name string) (*Script, error) {
	path := Path(name)
	if exists, _ := filesystem.API().Exists(path); !exists {
		return nil, fmt.Errorf("source %q is not installed", name)
	}
	return Load(path)
}

// Path returns where the script with the given name is installed.
func Path(name string) string {
	return filepath.Join(where.Sources(), util.SanitizeFilename(strings.TrimSuffix(name, Extension))+Extension)
}

// List returns the names of installed scripts.
func List() ([]string, error) {
	files, err := filesystem.API().ReadDir(where.Sources())
	if err != nil {
		return nil, err
	}

	return lo.FilterMap(files, func(f os.FileInfo, _ int) (string, bool) {
		if f.IsDir() || filepath.Ext(f.Name()) != Extension {
			return "", false
		}
		return util.FileStem(f.Name()), true
	}), nil
}

// Name returns the script name.
func (s *Script) Name() string {
	return s.name
}

// EpisodeSources calls the script for the episode with the given identifier.
func (s *Script) EpisodeSources(id string) (*source.EpisodeSources, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	val, err := s.call(constant.EpisodeSourcesFn, lua.LTTable, lua.LString(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}

	sources := episodeSourcesFromTable(val.(*lua.LTable))
	if err := sources.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}

	return sources, nil
}

// Close releases the Lua state.
func (s *Script) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Close()
}

// call executes a global Lua function in protected mode.
func (s *Script) call(fn string, retType lua.LValueType, args ...lua.LValue) (lua.LValue, error) {
	luaFn := s.state.GetGlobal(fn)
	if luaFn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("function %s is not defined", fn)
	}

	err := s.state.CallByParam(lua.P{
		Fn:      luaFn,
		NRet:    1,
		Protect: true,
	}, args...)
	if err != nil {
		return nil, err
	}

	retval := s.state.Get(-1)
	s.state.Pop(1)

	if retval.Type() != retType {
		return nil, fmt.Errorf("%s returned %s, expected %s", fn, retval.Type(), retType)
	}

	return retval, nil
}
