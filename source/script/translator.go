package script

import (
	"github.com/anisan-cli/anistream/playback"
	"github.com/anisan-cli/anistream/source"
	lua "github.com/yuin/gopher-lua"
)

func getString(table *lua.LTable, key string) string {
	val := table.RawGetString(key)
	if val.Type() == lua.LTString || val.Type() == lua.LTNumber {
		return val.String()
	}
	return ""
}

func getNumber(table *lua.LTable, key string) (float64, bool) {
	val, ok := table.RawGetString(key).(lua.LNumber)
	return float64(val), ok
}

// eachTable calls fn for every table element of the list stored under key.
func eachTable(table *lua.LTable, key string, fn func(*lua.LTable)) {
	list, ok := table.RawGetString(key).(*lua.LTable)
	if !ok {
		return
	}
	list.ForEach(func(k, v lua.LValue) {
		if k.Type() != lua.LTNumber {
			return
		}
		if item, ok := v.(*lua.LTable); ok {
			fn(item)
		}
	})
}

func stringMap(table *lua.LTable, key string) map[string]string {
	values, ok := table.RawGetString(key).(*lua.LTable)
	if !ok {
		return nil
	}
	m := make(map[string]string)
	values.ForEach(func(k, v lua.LValue) {
		m[k.String()] = v.String()
	})
	return m
}

func intervalFromTable(table *lua.LTable, key string) *playback.Interval {
	values, ok := table.RawGetString(key).(*lua.LTable)
	if !ok {
		return nil
	}
	start, okStart := getNumber(values, "start")
	end, okEnd := getNumber(values, "end")
	if !okStart || !okEnd {
		return nil
	}
	return &playback.Interval{Start: start, End: end}
}

func episodeSourcesFromTable(table *lua.LTable) *source.EpisodeSources {
	sources := &source.EpisodeSources{
		Title:   getString(table, "title"),
		Headers: stringMap(table, "headers"),
		Intro:   intervalFromTable(table, "intro"),
		Outro:   intervalFromTable(table, "outro"),
	}

	if id, ok := getNumber(table, "malId"); ok {
		sources.MalID = int(id)
	}
	if episode, ok := getNumber(table, "episode"); ok {
		sources.Episode = int(episode)
	}

	eachTable(table, "sources", func(item *lua.LTable) {
		sources.Sources = append(sources.Sources, source.Stream{
			URL:     getString(item, "url"),
			IsM3U8:  lua.LVAsBool(item.RawGetString("isM3U8")),
			Quality: getString(item, "quality"),
		})
	})

	eachTable(table, "subtitles", func(item *lua.LTable) {
		sources.Subtitles = append(sources.Subtitles, source.Subtitle{
			Label: getString(item, "label"),
			Lang:  getString(item, "lang"),
			URL:   getString(item, "url"),
		})
	})

	return sources
}
