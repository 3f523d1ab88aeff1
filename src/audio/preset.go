package audio

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
)

type presetMetaJSON struct {
	Name string `json:"name"`
}
type presetMetaListJSON struct {
	Items []presetMetaJSON `json:"items"`
}

// presetManager loads named Params from <dir>/<name>.json. The list of
// names lives in <dir>/_list.json.
type presetManager struct {
	sync.Mutex
	dir  string
	list []string
}

func newPresetManager(dir string) *presetManager {
	return &presetManager{
		dir: dir,
	}
}

func (pm *presetManager) getList() ([]string, error) {
	pm.Lock()
	defer pm.Unlock()
	if pm.list == nil {
		if err := pm.loadList(); err != nil {
			return nil, err
		}
	}
	return pm.list, nil
}

// load returns base overwritten by the fields of the named preset.
func (pm *presetManager) load(name string, base *Params) (*Params, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid preset name %q", name)
	}
	bytes, err := ioutil.ReadFile(filepath.Join(pm.dir, name+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read preset %s: %w", name, err)
	}
	p := base.clone()
	if err := p.applyJSON(bytes); err != nil {
		return nil, fmt.Errorf("preset %s: %w", name, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("preset %s: %w", name, err)
	}
	return p, nil
}

func (pm *presetManager) save(name string, p *Params) error {
	if name == "" || filepath.Base(name) != name {
		return fmt.Errorf("invalid preset name %q", name)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if err := ioutil.WriteFile(filepath.Join(pm.dir, name+".json"), data, 0644); err != nil {
		return err
	}
	return pm.addToList(name)
}

func (pm *presetManager) addToList(name string) error {
	pm.Lock()
	defer pm.Unlock()
	if err := pm.loadList(); err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, n := range pm.list {
		if n == name {
			return nil
		}
	}
	pm.list = append(pm.list, name)
	metaListJSON := &presetMetaListJSON{}
	for _, n := range pm.list {
		metaListJSON.Items = append(metaListJSON.Items, presetMetaJSON{Name: n})
	}
	data, err := json.MarshalIndent(metaListJSON, "", "  ")
	if err != nil {
		return err
	}
	return ioutil.WriteFile(filepath.Join(pm.dir, "_list.json"), data, 0644)
}

func (pm *presetManager) loadList() error {
	bytes, err := ioutil.ReadFile(filepath.Join(pm.dir, "_list.json"))
	if err != nil {
		return err
	}
	metaListJSON := &presetMetaListJSON{}
	err = json.Unmarshal(bytes, &metaListJSON)
	if err != nil {
		return err
	}
	pm.list = make([]string, len(metaListJSON.Items))
	for i, item := range metaListJSON.Items {
		pm.list[i] = item.Name
	}
	return nil
}
