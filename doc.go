// Package sproto implements a binary wire-format codec compatible with the
// sproto schema/encoding family: a bundle parser that loads a precompiled
// schema into a read-only Catalogue, a record codec that encodes and
// decodes tag-sparse structures against that catalogue, a pack/unpack
// framer that elides runs of zero bytes, and an RPC host that multiplexes
// requests and responses over the codec by session id.
package sproto
