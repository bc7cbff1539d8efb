// Package account defines the account service contract shared by every
// transport binding: identifiers, operations, the account record and its
// protobuf well-known-type wire encoding.
//
// Both bindings carry the same logical fields. Requests are
// wrapperspb.StringValue (reads) or structpb.Struct (CreateAccount) and
// every response is a structpb.Struct, so no protoc toolchain is needed.
package account
