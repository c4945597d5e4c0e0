// Package config loads gradebook configuration.
//
// Values are layered in this order, later sources winning:
//
//  1. Default()
//  2. a YAML file: $GRADEBOOK_CONFIG, else gradebook.yaml or configs/gradebook.yaml
//  3. GRADEBOOK_* environment variables
//
// Environment names follow the struct nesting, for example:
//
//	GRADEBOOK_SERVER_PORT=9090
//	GRADEBOOK_DATABASE_DRIVER=sqlite
//	GRADEBOOK_DATABASE_DSN=file:gradebook.db
//	GRADEBOOK_SECURITY_RATE_LIMIT_RPS=20
//	GRADEBOOK_BACKUP_PATH=data/backup.json
//
// A minimal file:
//
//	server:
//	  port: 9090
//	  max_upload_bytes: 5242880
//	database:
//	  driver: sqlite
//	  dsn: "file:gradebook.db"
//	logging:
//	  level: debug
//	  output: both
//	  file_path: logs/gradebook.log
package config
