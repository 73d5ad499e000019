package constant

// EpisodeSourcesFn is the global function every episode source script must define.
const EpisodeSourcesFn = "EpisodeSources"

// SourceTemplate is a Go text/template for scaffolding new Lua episode source scripts.
const SourceTemplate = `{{ $divider := repeat "-" (plus (max (len .URL) (len .Name) (len .Author) 3) 12) }}{{ $divider }}
-- @name    {{ .Name }}
-- @url     {{ .URL }}
-- @author  {{ .Author }}
-- @license MIT
{{ $divider }}


---@alias source { url: string, isM3U8: boolean|nil, quality: string|nil }
---@alias subtitle { label: string|nil, lang: string, url: string }
---@alias interval { start: number, ["end"]: number }
---@alias sources { sources: source[], headers: table<string, string>|nil, subtitles: subtitle[]|nil, intro: interval|nil, outro: interval|nil }


----- IMPORTS -----
local http = require("http")
local json = require("json")
--- END IMPORTS ---



----- VARIABLES -----
local base = "{{ .URL }}"
--- END VARIABLES ---



----- MAIN -----

--- Resolves the playable sources of an episode.
-- @param id string Episode identifier
-- @return sources Episode sources
function {{ .EpisodeSourcesFn }}(id)
	return { sources = {}, headers = {}, subtitles = {} }
end


--- END MAIN ---




----- HELPERS -----
--- END HELPERS ---

-- ex: ts=4 sw=4 et filetype=lua
`
