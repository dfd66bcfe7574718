// Command ptrack extracts frames from microscopy videos, locates particles,
// links them into trajectories and exports annotated TIFF stacks.
//
// Each stage is a sub-command and can be run on its own:
//
//	ptrack extract movie.avi -o frames/
//	ptrack explore frames/ --diameter 11 --min-mass 100 -o out/
//	ptrack batch frames/ --save -o out/
//	ptrack track --search-range 5 --memory 3 --size-bound fixed
//	ptrack export -o out/
//
// Detected features and trajectories are kept in a SQLite run store so that
// tracking and export can be repeated with other parameters. `ptrack serve`
// exposes the same stages as JSON-RPC tools on stdin/stdout.
//
// Settings come from defaults, then the TOML file, then PTRACK_*
// environment variables, then flags.
package main
