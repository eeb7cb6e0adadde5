// Package simplepost provides a post record with pluggable record and content
// storage backends.
//
// A Post keeps its metadata (sites, collections, author, title, slug and the
// published flag) in a RecordStore and its markdown body in a ContentStore,
// holding only a Pointer to the body. Every field is written through a setter
// that validates the value and leaves the post unchanged when it is rejected.
// Implementations of record stores (memory, Badger, Postgres, DynamoDB) and
// content stores (memory, filesystem, S3, MinIO) are provided under
// subpackages.
//
// Persistence Shape
//
// Posts are saved as a FieldSet holding only populated fields. Sites and
// collections share the record keyspace with posts as marker records
// discriminated by the recordType field, which is how references are checked.
package simplepost
