// Package registry 维护按名称选择的组件工厂（显式、零反射）。
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"fastrecord/pkg/contract"
	bcls "fastrecord/plugins/builder/classifier"
	bsim "fastrecord/plugins/builder/similarity"
	btag "fastrecord/plugins/builder/tagging"
	rfs "fastrecord/plugins/reader/filesystem"
	wfs "fastrecord/plugins/writer/filesystem"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", contract.ErrConfiguration, err)
	}
	return nil
}

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.Reader, error)

// NewBuilder 工厂签名：接收原样 JSON Options。
type NewBuilder func(raw json.RawMessage) (contract.RecordBuilder, error)

// NewWriter 工厂签名：接收原样 JSON Options。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// Reader 工厂注册表。
var Reader = map[string]NewReader{
	// fs: 本地目录/文件，自动识别 train/dev/test
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

// Builder 任务记录构建器注册表，键为任务名。
var Builder = map[contract.Task]NewBuilder{
	contract.TaskClassifier: func(raw json.RawMessage) (contract.RecordBuilder, error) {
		var opts bcls.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		v, err := bcls.New(&opts)
		if err != nil {
			return nil, err
		}
		return v, nil
	},
	contract.TaskSimilarity: func(raw json.RawMessage) (contract.RecordBuilder, error) {
		var opts bsim.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		v, err := bsim.New(&opts)
		if err != nil {
			return nil, err
		}
		return v, nil
	},
	contract.TaskTagging: func(raw json.RawMessage) (contract.RecordBuilder, error) {
		var opts btag.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		v, err := btag.New(&opts)
		if err != nil {
			return nil, err
		}
		return v, nil
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 本地目录，原子替换
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		v, err := wfs.New(&opts)
		if err != nil {
			return nil, err
		}
		return v, nil
	},
}

// Tasks 返回已注册的任务名（固定顺序）。
func Tasks() []contract.Task {
	return []contract.Task{contract.TaskClassifier, contract.TaskSimilarity, contract.TaskTagging}
}
