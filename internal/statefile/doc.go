// Package statefile persists the state store as a single JSON document,
// State.json, in the mod's data directory.
//
// # File format
//
//	{
//	  "<key>": {
//	    "Name": "<key>",
//	    "SerializedObject": "<JSON text of the value>",
//	    "SerializedObjectType": "<type tag>"
//	  }
//	}
//
// SerializedObject is JSON text nested inside the outer document (double
// encoding), which keeps files readable by earlier builds of the mod.
//
// # Compatibility
//
// Decode also accepts:
//   - SerializedObject as a native JSON value instead of text
//   - the {"Objects": {...}} wrapper written by the original plugin
//   - .NET type names (System.Int32, assembly-qualified names, List<string>,
//     ArchipelagoData), mapped onto the built-in state type tags
//
// # Writes
//
// Save writes to a temporary file in the same directory and renames it over
// State.json, so an interrupted save leaves the previous file intact.
package statefile
