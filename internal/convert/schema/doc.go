// Package schema derives the record schemas a CSV payload is converted into.
//
// Column metadata from a sample envelope is resolved into FieldDescriptors
// (ResolveDataType), assembled into an item schema in column order, wrapped in
// a collection schema, and paired with the RecordShape that decides which of
// the two is emitted. The derived Schema is immutable and shared read-only by
// every conversion.
package schema
