package services

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"playstore-analytics/models"
)

func TestWordWeightsByApp(t *testing.T) {
	words := WordWeights(fullView(), false, 3)
	if len(words) != 3 {
		t.Fatalf("words: got %d, want 3", len(words))
	}
	if words[0].Word != "Candy Blast" || words[0].Weight != 10050000 {
		t.Errorf("heaviest word: %+v", words[0])
	}
	if words[1].Word != "Chatter" {
		t.Errorf("second word: %+v", words[1])
	}
}

func TestWordWeightsByCategory(t *testing.T) {
	words := WordWeights(fullView(), true, 10)
	if len(words) != 5 {
		t.Fatalf("words: got %d, want 5", len(words))
	}
	if words[0].Word != "GAME" {
		t.Errorf("heaviest category: %+v", words[0])
	}
	if WordWeights(emptyView(), true, 10) != nil {
		t.Error("empty view should yield no words")
	}
}

func TestWordCloudRendererProducesPNG(t *testing.T) {
	r := NewWordCloudRenderer(320, 160)
	cloud, err := r.Render([]models.WordWeight{
		{Word: "Candy Blast", Weight: 100},
		{Word: "Chatter", Weight: 50},
		{Word: "Sky", Weight: 1},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(cloud.PNG))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 160 {
		t.Errorf("size: got %v", b)
	}
	if len(cloud.Words) != 3 {
		t.Errorf("words: got %d", len(cloud.Words))
	}
}

func TestWordCloudChart(t *testing.T) {
	spec, cloud, err := WordCloudChart(fullView(), testContext([]string{"GAME"}, false), NewWordCloudRenderer(200, 100))
	if err != nil {
		t.Fatal(err)
	}
	if spec.Mark != models.MarkImage || spec.ID != string(models.OutputWordCloud) {
		t.Errorf("spec: %+v", spec)
	}
	url := spec.Encoding(models.ChannelURL)
	if url == nil || !strings.HasPrefix(url.Value.(string), "data:image/png;base64,") {
		t.Errorf("url encoding: %+v", url)
	}
	if cloud == nil || len(cloud.PNG) == 0 {
		t.Fatal("expected a rendered image")
	}
	if spec.Data[0]["word"] != "Candy Blast" {
		t.Errorf("first word: %v", spec.Data[0])
	}
}
