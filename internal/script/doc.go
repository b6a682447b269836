// Package script provides bus handlers written in Lua.
//
// A script declares the categories it listens to and a callback:
//
//	interest = 0x01000000 -- alerts
//	id = 42               -- optional, a fresh id is drawn otherwise
//
//	function on_event(ev)
//	    log("alert from " .. ev.source .. ": " .. tostring(ev.payload))
//	    if ev.payload == "fatal" then
//	        return "refusing fatal alert"
//	    end
//	end
//
// The callback receives a table with the fields flags, flags_name and, for
// messages, id, source, payload and timestamp. Returning a string fails the
// delivery with that text.
//
// Scripts run in a restricted state: only the base, table, string and math
// libraries are opened, and the loaders (dofile, loadfile, load,
// loadstring, require) are removed. Each callback runs under a timeout.
//
// A Handler must be held by the caller for as long as it should receive
// events, since buses only keep weak references.
package script
