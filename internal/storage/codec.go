package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"percept/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeUnitSnapshot(s model.UnitSnapshot) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeUnitSnapshot(data []byte) (model.UnitSnapshot, error) {
	var snapshot model.UnitSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.UnitSnapshot{}, err
	}
	if err := checkVersion(snapshot.VersionedRecord); err != nil {
		return model.UnitSnapshot{}, err
	}
	return snapshot, nil
}

func EncodeTrainingRun(r model.TrainingRun) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeTrainingRun(data []byte) (model.TrainingRun, error) {
	var run model.TrainingRun
	if err := json.Unmarshal(data, &run); err != nil {
		return model.TrainingRun{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.TrainingRun{}, err
	}
	return run, nil
}

func checkVersion(record model.VersionedRecord) error {
	if record.SchemaVersion != CurrentSchemaVersion || record.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, record.SchemaVersion, record.CodecVersion)
	}
	return nil
}
