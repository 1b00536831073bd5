package admission

import "encoding/json"

func encodeCachedResponse(resp any) ([]byte, error) {
	return json.Marshal(resp)
}

func decodeCachedResponse(d *descriptor, data []byte) (any, error) {
	out := d.cacheNew()
	if err := json.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}
