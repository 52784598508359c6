package featurestore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const groupFile = "group.pb"

// maxExactInt is the largest integer a protobuf number value holds exactly
const maxExactInt = 1 << 53

// FileStore keeps each feature group in a directory and each dataset in a
// protobuf encoded google.protobuf.Struct file
type FileStore struct {
	root string
}

// NewFileStore creates the root directory if needed
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create feature store directory: %w", err)
	}
	return &FileStore{root: root}, nil
}

var _ Store = (*FileStore)(nil)

func (s *FileStore) groupDir(name string, version int) string {
	return filepath.Join(s.root, fmt.Sprintf("%s_v%d", name, version))
}

func (s *FileStore) GetOrCreateGroup(ctx context.Context, spec GroupSpec) (Group, error) {
	dir := s.groupDir(spec.Name, spec.Version)
	path := filepath.Join(dir, groupFile)

	data, err := os.ReadFile(path)
	if err == nil {
		msg := &structpb.Struct{}
		if err := proto.Unmarshal(data, msg); err != nil {
			return Group{}, fmt.Errorf("feature group %s is corrupt: %w", spec.Name, err)
		}
		return Group{GroupSpec: decodeGroupSpec(msg), Status: GroupExisting}, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return Group{}, fmt.Errorf("failed to read feature group %s: %w", spec.Name, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Group{}, fmt.Errorf("failed to create feature group %s: %w", spec.Name, err)
	}
	msg, err := encodeGroupSpec(spec)
	if err != nil {
		return Group{}, err
	}
	if err := writeMessage(path, msg); err != nil {
		return Group{}, err
	}
	return Group{GroupSpec: spec, Status: GroupCreated}, nil
}

func (s *FileStore) Put(ctx context.Context, group Group, ds Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}

	columns := make([]*structpb.Value, len(ds.Columns))
	for i, c := range ds.Columns {
		columns[i] = structpb.NewStringValue(c)
	}

	rows := make([]*structpb.Value, len(ds.Rows))
	for i, row := range ds.Rows {
		values := make([]*structpb.Value, len(row))
		for j, v := range row {
			if v > maxExactInt || v < -maxExactInt {
				return fmt.Errorf("dataset %s row %d column %s: %d cannot be stored exactly", ds.Name, i, ds.Columns[j], v)
			}
			values[j] = structpb.NewNumberValue(float64(v))
		}
		rows[i] = structpb.NewListValue(&structpb.ListValue{Values: values})
	}

	msg := &structpb.Struct{Fields: map[string]*structpb.Value{
		"name":    structpb.NewStringValue(ds.Name),
		"columns": structpb.NewListValue(&structpb.ListValue{Values: columns}),
		"rows":    structpb.NewListValue(&structpb.ListValue{Values: rows}),
	}}

	dir := s.groupDir(group.Name, group.Version)
	return writeMessage(filepath.Join(dir, ds.Name+".pb"), msg)
}

func (s *FileStore) Get(ctx context.Context, group Group, name string) (Dataset, error) {
	path := filepath.Join(s.groupDir(group.Name, group.Version), name+".pb")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Dataset{}, fmt.Errorf("%s in group %s v%d: %w", name, group.Name, group.Version, ErrDatasetNotFound)
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to read dataset %s: %w", name, err)
	}

	msg := &structpb.Struct{}
	if err := proto.Unmarshal(data, msg); err != nil {
		return Dataset{}, fmt.Errorf("dataset %s is corrupt: %w", name, err)
	}

	ds := Dataset{Name: msg.GetFields()["name"].GetStringValue()}
	for _, v := range msg.GetFields()["columns"].GetListValue().GetValues() {
		ds.Columns = append(ds.Columns, v.GetStringValue())
	}
	for _, r := range msg.GetFields()["rows"].GetListValue().GetValues() {
		values := r.GetListValue().GetValues()
		row := make([]int64, len(values))
		for j, v := range values {
			row[j] = int64(math.Round(v.GetNumberValue()))
		}
		ds.Rows = append(ds.Rows, row)
	}

	return ds, ds.Validate()
}

func (s *FileStore) Close() error { return nil }

func encodeGroupSpec(spec GroupSpec) (*structpb.Struct, error) {
	pk := make([]any, len(spec.PrimaryKey))
	for i, k := range spec.PrimaryKey {
		pk[i] = k
	}
	msg, err := structpb.NewStruct(map[string]any{
		"name":        spec.Name,
		"version":     spec.Version,
		"description": spec.Description,
		"primary_key": pk,
		"event_time":  spec.EventTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode feature group %s: %w", spec.Name, err)
	}
	return msg, nil
}

func decodeGroupSpec(msg *structpb.Struct) GroupSpec {
	f := msg.GetFields()
	spec := GroupSpec{
		Name:        f["name"].GetStringValue(),
		Version:     int(f["version"].GetNumberValue()),
		Description: f["description"].GetStringValue(),
		EventTime:   f["event_time"].GetStringValue(),
	}
	for _, v := range f["primary_key"].GetListValue().GetValues() {
		spec.PrimaryKey = append(spec.PrimaryKey, v.GetStringValue())
	}
	return spec
}

// writeMessage replaces path atomically
func writeMessage(path string, msg proto.Message) error {
	data, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
