package classifier

import "testing"

func supported() map[string]bool {
	return map[string]bool{".jpg": true, ".dng": true, ".mp4": true}
}

func TestClassifyJunkSystemFile(t *testing.T) {
	r := Classify("/staging/pc/.DS_Store", Options{JunkNames: DefaultJunkNames()}, supported())
	if r.Kind != KindJunk || r.Reason != "system_file" {
		t.Errorf("got %+v, want Junk/system_file", r)
	}
}

func TestClassifyJunkAppleDouble(t *testing.T) {
	r := Classify("/staging/pc/._IMG_0001.JPG", Options{JunkNames: DefaultJunkNames()}, supported())
	if r.Kind != KindJunk || r.Reason != "appledouble" {
		t.Errorf("got %+v, want Junk/appledouble", r)
	}
}

func TestClassifyUnsupportedExtension(t *testing.T) {
	r := Classify("/staging/pc/notes.txt", Options{JunkNames: DefaultJunkNames()}, supported())
	if r.Kind != KindUnsupported || r.Reason != ".txt" {
		t.Errorf("got %+v, want Unsupported/.txt", r)
	}
}

func TestClassifyCandidateIsCaseInsensitive(t *testing.T) {
	r := Classify("/staging/pc/IMG_0001.JPG", Options{JunkNames: DefaultJunkNames()}, supported())
	if r.Kind != KindCandidate {
		t.Errorf("got %+v, want Candidate", r)
	}
}
