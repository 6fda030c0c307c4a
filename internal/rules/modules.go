package rules

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// registerModules installs the arena table:
//
//	arena.log(msg)                 logs at Info through the manager's logger
//	arena.clamp(x, lo, hi)         clamps x into [lo, hi]
//	arena.default_multiplier(lvl)  the built-in escalation for level lvl
func (m *Manager) registerModules(L *lua.LState) {
	arena := L.NewTable()
	L.SetField(arena, "log", L.NewFunction(func(L *lua.LState) int {
		m.logger.Info("rule script", zap.String("msg", L.CheckString(1)))
		return 0
	}))
	L.SetField(arena, "clamp", L.NewFunction(func(L *lua.LState) int {
		x, lo, hi := L.CheckNumber(1), L.CheckNumber(2), L.CheckNumber(3)
		switch {
		case x < lo:
			x = lo
		case x > hi:
			x = hi
		}
		L.Push(x)
		return 1
	}))
	L.SetField(arena, "default_multiplier", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(m.fallback.Multiplier(0, L.CheckInt(1))))
		return 1
	}))
	L.SetGlobal("arena", arena)
}
