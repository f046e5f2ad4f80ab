// Package config loads memocache configuration from YAML and assembles the
// runtime it describes: observer, persistent stores, registry and facade.
//
// A minimal file:
//
//	observe:
//	  service_name: memocache
//	  logging: {enabled: true, level: info}
//	storage:
//	  serializer: msgpack
//	  session_quota: 5 MiB
//	  local: {driver: sqlite, path: /var/lib/memocache/cache.db}
//	memo:
//	  ttl: 5s
//	  max_items: 5
//
// ${VAR} references are expanded from the environment before decoding, and
// an unset variable is an error; $$ escapes a dollar sign. Unknown keys are
// rejected. Durations use Go syntax ("5s", "1m30s"); byte
// sizes accept SI and IEC suffixes ("5 MB", "5 MiB").
package config
