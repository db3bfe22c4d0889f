package render

import (
	"fmt"

	"github.com/barasher/go-exiftool"
	"k8s.io/klog/v2"
)

// stampTitles writes each title into the Headline tag of the file it is keyed by.
// Requires the exiftool binary.
func stampTitles(titles map[string]string) error {
	if len(titles) == 0 {
		return nil
	}

	et, err := exiftool.NewExiftool()
	if err != nil {
		return fmt.Errorf("exiftool: %w", err)
	}
	defer func() {
		if err := et.Close(); err != nil {
			klog.Errorf("Failed to close exiftool: %v", err)
		}
	}()

	for path, title := range titles {
		fis := et.ExtractMetadata(path)
		if fis[0].Err != nil {
			klog.Errorf("extract fail for %q: %v", path, fis[0].Err)
			continue
		}

		if old, err := fis[0].GetString("Headline"); err == nil && old == title {
			klog.V(1).Infof("%s already has headline %q", path, title)
			continue
		}

		klog.V(1).Infof("setting headline of %s to %q", path, title)
		fis[0].SetString("Headline", title)
		et.WriteMetadata(fis)
		if fis[0].Err != nil {
			return fmt.Errorf("write metadata for %s: %w", path, fis[0].Err)
		}
	}
	return nil
}
