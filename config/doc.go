// Package config loads the YAML configuration shared by the opcall tools.
//
//	log:
//	  level: debug
//	  format: json
//	cache:
//	  max: 200
//	  max_mem: 52428800
//	  max_files: 20
//	  trace: true
//	kernels:
//	  - name: double
//	    path: kernels/double.wasm
//	journal:
//	  path: opcall.db
package config
