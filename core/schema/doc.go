/*
Package schema defines the meta-schema model for Harmony configuration
domains and loads schema documents into it.

A schema document is itself TOML. It declares its version at the root and
describes the expected configuration under a [schema] root marker:

	schema_version = "1.8.0"
	domain = "gateway"

	[schema.proxy]
	required = true

	[schema.proxy.id]
	type = "string"
	required = true

	[schema.proxy.log_level]
	type = "integer"
	default = 1

	[schema.services."*"]
	provides = "service_type"

	[schema.services."*".module]
	type = "string"

# Tables and Fields

Inside [schema], a table-valued key that carries a type key is a field;
any other table-valued key is a nested table. The key "*" is a wildcard
and matches every key at that position in a configuration document.

Table attributes are scalars:

  - description: free text
  - required:    the table must be present
  - cardinality: "single" (default) or "array" for arrays of tables
  - provides:    every key matched by this table registers a reference name

Attributes share the key space with the table's children. A table that
declares a field or child table named description, required, cardinality
or provides cannot also set that attribute; TOML rejects the second
definition and Load reports it as Malformed at the child's path.

Field entries accept type, required, default, ref, values, table, provides
and description. Nothing else.

# Types

  - string, integer, float, boolean, datetime
  - enum:     a string from values
  - table:    a free-form table, or one shaped by [definitions.<table>]
  - array<T>: an array of any type, including nested arrays

A field with ref must be a string or array<string>. Its value is resolved
at validation time against a registry supplied by the caller.

# Definitions

Reusable table shapes live under [definitions.<name>] and are referenced
from fields with type = "table" and table = "<name>".
*/
package schema
