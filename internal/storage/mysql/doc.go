// Package mysql persists the execution history of wallet actions. A JSON-lines
// file repository serves single-node deployments; the MySQL repository applies
// the embedded schema migrations on startup.
package mysql
