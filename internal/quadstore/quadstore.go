// Package quadstore implements dataset.Dataset on top of the
// transactional key-value storage layer. Quads are stored in four
// permuted indexes of fixed-width encoded terms; hashed terms resolve
// back to strings through the id2str table.
package quadstore

import (
	"context"
	"fmt"

	"github.com/gtfierro/rdflib/internal/encoding"
	"github.com/gtfierro/rdflib/internal/storage"
	"github.com/gtfierro/rdflib/pkg/dataset"
	"github.com/gtfierro/rdflib/pkg/rdf"
)

// Store is a persistent RDF dataset.
type Store struct {
	storage storage.Storage
}

var _ dataset.Dataset = (*Store)(nil)

// Open opens (or creates) a store at path.
func Open(path string) (*Store, error) {
	s, err := storage.NewBadgerStorage(path)
	if err != nil {
		return nil, err
	}
	return &Store{storage: s}, nil
}

// OpenInMemory opens a store that never touches disk.
func OpenInMemory() (*Store, error) {
	s, err := storage.NewInMemoryStorage()
	if err != nil {
		return nil, err
	}
	return &Store{storage: s}, nil
}

// New wraps an existing storage backend.
func New(s storage.Storage) *Store {
	return &Store{storage: s}
}

func (s *Store) Close() error {
	return s.storage.Close()
}

// Sync flushes pending writes to disk.
func (s *Store) Sync() error {
	return s.storage.Sync()
}

// encodedQuad holds the four encoded positions of one quad.
type encodedQuad struct {
	s, p, o, g encoding.EncodedTerm
}

// indexKey builds the key for one index table from the quad's
// positions in that table's component order.
func (q encodedQuad) indexKey(table storage.Table) []byte {
	switch table {
	case storage.TableSPOG:
		return encoding.Key(q.s, q.p, q.o, q.g)
	case storage.TablePOSG:
		return encoding.Key(q.p, q.o, q.s, q.g)
	case storage.TableOSPG:
		return encoding.Key(q.o, q.s, q.p, q.g)
	case storage.TableGSPO:
		return encoding.Key(q.g, q.s, q.p, q.o)
	}
	panic("not an index table: " + table.String())
}

var indexTables = []storage.Table{
	storage.TableSPOG, storage.TablePOSG, storage.TableOSPG, storage.TableGSPO,
}

// quadFromKey reassembles positions from a key of the given index.
func quadFromKey(table storage.Table, key []byte) (encodedQuad, error) {
	terms, err := encoding.Split(key)
	if err != nil {
		return encodedQuad{}, err
	}
	if len(terms) != 4 {
		return encodedQuad{}, fmt.Errorf("index key holds %d terms, want 4", len(terms))
	}
	switch table {
	case storage.TableSPOG:
		return encodedQuad{s: terms[0], p: terms[1], o: terms[2], g: terms[3]}, nil
	case storage.TablePOSG:
		return encodedQuad{p: terms[0], o: terms[1], s: terms[2], g: terms[3]}, nil
	case storage.TableOSPG:
		return encodedQuad{o: terms[0], s: terms[1], p: terms[2], g: terms[3]}, nil
	case storage.TableGSPO:
		return encodedQuad{g: terms[0], s: terms[1], p: terms[2], o: terms[3]}, nil
	}
	return encodedQuad{}, fmt.Errorf("not an index table: %s", table)
}

func graphTerm(q *rdf.Quad) rdf.Term {
	if q.Graph == nil {
		return rdf.NewDefaultGraph()
	}
	return q.Graph
}

// encodeQuad encodes all four positions and records the id2str entries
// hashed terms will need at decode time.
func encodeQuad(q *rdf.Quad, id2str map[encoding.EncodedTerm]string) (encodedQuad, error) {
	var enc encodedQuad
	var err error
	record := func(term rdf.Term) (encoding.EncodedTerm, error) {
		et, str, err := encoding.Encode(term)
		if err != nil {
			return et, err
		}
		if str != nil {
			id2str[et] = *str
		}
		return et, nil
	}

	if enc.s, err = record(q.Subject); err != nil {
		return enc, err
	}
	if enc.p, err = record(q.Predicate); err != nil {
		return enc, err
	}
	if enc.o, err = record(q.Object); err != nil {
		return enc, err
	}
	if enc.g, err = record(graphTerm(q)); err != nil {
		return enc, err
	}
	return enc, nil
}

func (s *Store) Add(ctx context.Context, quads ...*rdf.Quad) error {
	txn, err := s.storage.Begin(true)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	id2str := make(map[encoding.EncodedTerm]string)
	for _, q := range quads {
		enc, err := encodeQuad(q, id2str)
		if err != nil {
			return err
		}
		for _, table := range indexTables {
			if err := txn.Set(table, enc.indexKey(table), nil); err != nil {
				return err
			}
		}
		if g, ok := graphTerm(q).(*rdf.IRI); ok {
			if err := txn.Set(storage.TableGraphs, enc.g[:], []byte(g.Value)); err != nil {
				return err
			}
		}
	}
	for et, str := range id2str {
		if err := txn.Set(storage.TableID2Str, et[:], []byte(str)); err != nil {
			return err
		}
	}
	return txn.Commit()
}

func (s *Store) Remove(ctx context.Context, quads ...*rdf.Quad) error {
	txn, err := s.storage.Begin(true)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	// id2str entries stay behind. They are shared across quads and
	// cheap to keep; reclaiming them would need reference counting.
	scratch := make(map[encoding.EncodedTerm]string)
	for _, q := range quads {
		enc, err := encodeQuad(q, scratch)
		if err != nil {
			return err
		}
		for _, table := range indexTables {
			if err := txn.Delete(table, enc.indexKey(table)); err != nil {
				return err
			}
		}
	}
	return txn.Commit()
}

// matchSpec describes which index to scan for a pattern and how much
// of the key is fixed by bound terms.
type matchSpec struct {
	table  storage.Table
	prefix []byte
}

// planMatch picks the index whose component order puts the bound
// pattern positions first.
func planMatch(sub, pred, obj *encoding.EncodedTerm, graph *encoding.EncodedTerm) matchSpec {
	order := func(table storage.Table, components ...*encoding.EncodedTerm) matchSpec {
		var prefix []byte
		for _, c := range components {
			if c == nil {
				break
			}
			prefix = append(prefix, c[:]...)
		}
		return matchSpec{table: table, prefix: prefix}
	}

	if graph != nil {
		return order(storage.TableGSPO, graph, sub, pred, obj)
	}
	switch {
	case sub != nil:
		return order(storage.TableSPOG, sub, pred, obj)
	case pred != nil:
		return order(storage.TablePOSG, pred, obj)
	case obj != nil:
		return order(storage.TableOSPG, obj)
	default:
		return matchSpec{table: storage.TableSPOG}
	}
}

// prefixEnd returns the smallest key greater than every key with the
// given prefix, or nil when no such key exists.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

func (s *Store) Match(ctx context.Context, subject, predicate, object, graph rdf.Term) (dataset.QuadIterator, error) {
	encodePattern := func(term rdf.Term) (*encoding.EncodedTerm, error) {
		if term == nil {
			return nil, nil
		}
		et, _, err := encoding.Encode(term)
		if err != nil {
			return nil, err
		}
		return &et, nil
	}

	encS, err := encodePattern(subject)
	if err != nil {
		return nil, err
	}
	encP, err := encodePattern(predicate)
	if err != nil {
		return nil, err
	}
	encO, err := encodePattern(object)
	if err != nil {
		return nil, err
	}
	encG, err := encodePattern(graph)
	if err != nil {
		return nil, err
	}

	spec := planMatch(encS, encP, encO, encG)

	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()

	var start, end []byte
	if len(spec.prefix) > 0 {
		start = spec.prefix
		end = prefixEnd(spec.prefix)
	}
	it, err := txn.Scan(spec.table, start, end)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	lookup := func(et encoding.EncodedTerm) (string, error) {
		v, err := txn.Get(storage.TableID2Str, et[:])
		if err != nil {
			return "", fmt.Errorf("term %x missing from id2str: %w", et[:], err)
		}
		return string(v), nil
	}

	wants := func(bound *encoding.EncodedTerm, actual encoding.EncodedTerm) bool {
		return bound == nil || *bound == actual
	}

	var matched []*rdf.Quad
	for it.Next() {
		enc, err := quadFromKey(spec.table, it.Key())
		if err != nil {
			return nil, err
		}
		// The prefix pins leading components; trailing bound positions
		// still need a check.
		if !wants(encS, enc.s) || !wants(encP, enc.p) || !wants(encO, enc.o) || !wants(encG, enc.g) {
			continue
		}
		q, err := s.decodeQuad(enc, lookup)
		if err != nil {
			return nil, err
		}
		matched = append(matched, q)
	}

	return &sliceQuadIterator{quads: matched, pos: -1}, nil
}

func (s *Store) decodeQuad(enc encodedQuad, lookup func(encoding.EncodedTerm) (string, error)) (*rdf.Quad, error) {
	sub, err := encoding.Decode(enc.s, lookup)
	if err != nil {
		return nil, err
	}
	pred, err := encoding.Decode(enc.p, lookup)
	if err != nil {
		return nil, err
	}
	obj, err := encoding.Decode(enc.o, lookup)
	if err != nil {
		return nil, err
	}
	g, err := encoding.Decode(enc.g, lookup)
	if err != nil {
		return nil, err
	}
	return rdf.NewQuad(sub, pred, obj, g), nil
}

func (s *Store) Graphs(ctx context.Context) ([]*rdf.IRI, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()

	it, err := txn.Scan(storage.TableGraphs, nil, nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var graphs []*rdf.IRI
	for it.Next() {
		v, err := it.Value()
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, rdf.NewIRI(string(v)))
	}
	return graphs, nil
}

func (s *Store) Create(ctx context.Context, graph *rdf.IRI) error {
	enc, str, err := encoding.Encode(graph)
	if err != nil {
		return err
	}

	txn, err := s.storage.Begin(true)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	if _, err := txn.Get(storage.TableGraphs, enc[:]); err == nil {
		return fmt.Errorf("graph %s already exists", graph.Value)
	} else if err != storage.ErrNotFound {
		return err
	}
	if str != nil {
		if err := txn.Set(storage.TableID2Str, enc[:], []byte(*str)); err != nil {
			return err
		}
	}
	if err := txn.Set(storage.TableGraphs, enc[:], []byte(graph.Value)); err != nil {
		return err
	}
	return txn.Commit()
}

func (s *Store) Clear(ctx context.Context, graph rdf.Term) error {
	return s.clearScope(graph, false)
}

func (s *Store) Drop(ctx context.Context, graph rdf.Term) error {
	return s.clearScope(graph, true)
}

// clearScope empties the selected scope. When drop is set, named graph
// registrations in scope are removed as well.
func (s *Store) clearScope(graph rdf.Term, drop bool) error {
	txn, err := s.storage.Begin(true)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	switch g := graph.(type) {
	case nil:
		for _, table := range indexTables {
			if err := deleteAll(txn, table, nil); err != nil {
				return err
			}
		}
		if drop {
			if err := deleteAll(txn, storage.TableGraphs, nil); err != nil {
				return err
			}
		}

	case *rdf.DefaultGraph:
		// The default graph always exists; dropping it only empties it.
		enc, _, err := encoding.Encode(g)
		if err != nil {
			return err
		}
		if err := deleteGraphQuads(txn, enc); err != nil {
			return err
		}

	case *rdf.IRI:
		enc, _, err := encoding.Encode(g)
		if err != nil {
			return err
		}
		if _, err := txn.Get(storage.TableGraphs, enc[:]); err == storage.ErrNotFound {
			return dataset.ErrGraphNotFound
		} else if err != nil {
			return err
		}
		if err := deleteGraphQuads(txn, enc); err != nil {
			return err
		}
		if drop {
			if err := txn.Delete(storage.TableGraphs, enc[:]); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("invalid graph term %s", g)
	}

	return txn.Commit()
}

// deleteGraphQuads removes every quad of one graph from all four
// indexes, driving off a GSPO prefix scan.
func deleteGraphQuads(txn storage.Transaction, encG encoding.EncodedTerm) error {
	it, err := txn.Scan(storage.TableGSPO, encG[:], prefixEnd(encG[:]))
	if err != nil {
		return err
	}
	var keys [][]byte
	for it.Next() {
		keys = append(keys, append([]byte(nil), it.Key()...))
	}
	if err := it.Close(); err != nil {
		return err
	}

	for _, key := range keys {
		enc, err := quadFromKey(storage.TableGSPO, key)
		if err != nil {
			return err
		}
		for _, table := range indexTables {
			if err := txn.Delete(table, enc.indexKey(table)); err != nil {
				return err
			}
		}
	}
	return nil
}

// deleteAll removes every key of a table, optionally under a prefix.
func deleteAll(txn storage.Transaction, table storage.Table, prefix []byte) error {
	var end []byte
	if prefix != nil {
		end = prefixEnd(prefix)
	}
	it, err := txn.Scan(table, prefix, end)
	if err != nil {
		return err
	}
	var keys [][]byte
	for it.Next() {
		keys = append(keys, append([]byte(nil), it.Key()...))
	}
	if err := it.Close(); err != nil {
		return err
	}

	for _, key := range keys {
		if err := txn.Delete(table, key); err != nil {
			return err
		}
	}
	return nil
}

type sliceQuadIterator struct {
	quads []*rdf.Quad
	pos   int
}

func (it *sliceQuadIterator) Next() bool {
	it.pos++
	return it.pos < len(it.quads)
}

func (it *sliceQuadIterator) Quad() (*rdf.Quad, error) {
	return it.quads[it.pos], nil
}

func (it *sliceQuadIterator) Close() error {
	return nil
}
