package checkpoints

import (
	"encoding/json"
	"fmt"
	"os"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// The binary format is a protobuf-encoded structpb.Struct holding the same
// document the JSON format writes.

func (cs *CheckpointSaver) saveBinary(checkpoint *Checkpoint, path string) error {
	jsonData, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("failed to build checkpoint document: %v", err)
	}

	st, err := structpb.NewStruct(doc)
	if err != nil {
		return fmt.Errorf("failed to build protobuf struct: %v", err)
	}

	data, err := proto.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %v", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %v", err)
	}
	return nil
}

func (cs *CheckpointSaver) loadBinary(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %v", err)
	}

	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %v", err)
	}

	jsonData, err := json.Marshal(st.AsMap())
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild checkpoint document: %v", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(jsonData, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %v", err)
	}
	return &checkpoint, nil
}
