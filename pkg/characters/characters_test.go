package characters

import "testing"

func TestCatalog(t *testing.T) {
	all := All()
	if len(all) != 5 {
		t.Fatalf("catalog size = %d", len(all))
	}
	ids := map[string]bool{}
	for _, c := range all {
		if c.ID == "" || c.Name == "" || c.SystemPrompt == "" {
			t.Fatalf("incomplete character %+v", c)
		}
		if ids[c.ID] {
			t.Fatalf("duplicate id %s", c.ID)
		}
		ids[c.ID] = true
	}
	for _, want := range []string{"luna", "spark", "sage", "nova", "echo"} {
		if !ids[want] {
			t.Fatalf("missing character %s", want)
		}
	}
}

func TestByID(t *testing.T) {
	c, ok := ByID("luna")
	if !ok || c.Name != "Luna" {
		t.Fatalf("got %+v ok=%v", c, ok)
	}
	if _, ok := ByID("nobody"); ok {
		t.Fatal("unexpected hit")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	a := All()
	a[0].Name = "mutated"
	b := All()
	if b[0].Name == "mutated" {
		t.Fatal("All exposes internal state")
	}
}
