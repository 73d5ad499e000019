// Package scraper compiles, caches and installs Lua episode source scripts.
package scraper

import (
	"sync"

	"github.com/anisan-cli/anistream/filesystem"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

var bytecodeCache sync.Map

type compiled struct {
	proto   *lua.FunctionProto
	modTime int64
}

// PreCompileAndLoad executes a Lua script within the provided LState.
// Compiled prototypes are cached per path until the file changes.
func PreCompileAndLoad(L *lua.LState, scriptPath string) error {
	info, err := filesystem.API().Stat(scriptPath)
	if err != nil {
		return err
	}

	if cached, exists := bytecodeCache.Load(scriptPath); exists && cached.(compiled).modTime == info.ModTime().UnixNano() {
		L.Push(L.NewFunctionFromProto(cached.(compiled).proto))
		return L.PCall(0, lua.MultRet, nil)
	}

	file, err := filesystem.API().Open(scriptPath)
	if err != nil {
		return err
	}
	defer file.Close()

	chunk, err := parse.Parse(file, scriptPath)
	if err != nil {
		return err
	}

	proto, err := lua.Compile(chunk, scriptPath)
	if err != nil {
		return err
	}

	bytecodeCache.Store(scriptPath, compiled{proto: proto, modTime: info.ModTime().UnixNano()})

	L.Push(L.NewFunctionFromProto(proto))
	return L.PCall(0, lua.MultRet, nil)
}

// Forget drops the compiled prototype of a script.
func Forget(scriptPath string) {
	bytecodeCache.Delete(scriptPath)
}
