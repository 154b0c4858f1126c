package recipe

// builtins are the sample recipes a fresh kitchen starts with.
func builtins() []Draft {
	return []Draft{
		{
			Name:        "Chicken Alfredo",
			Description: "Creamy spaghetti alfredo with pan-seared chicken. Rich, indulgent, and not from a jar.",
			Steps: []StepDraft{
				{Instruction: "Bring a large pot of salted water to a boil. It should taste like the sea.", DurationSec: 480},
				{Instruction: "Season the chicken breasts on both sides and pound them to even thickness.", DurationSec: 120},
				{Instruction: "Sear the chicken in olive oil over medium-high heat until golden and cooked through.", DelaySec: 60, DurationSec: 720},
				{Instruction: "Drop the spaghetti into the boiling water. Reserve a cup of pasta water before draining.", DurationSec: 600},
				{Instruction: "Melt margarine in the skillet and cook the garlic until fragrant. Do not burn it.", DurationSec: 60},
				{Instruction: "Stir in the creme fraiche and let it reduce until it coats a spoon.", DurationSec: 180},
				{Instruction: "Off the heat, stir in the gruyere until smooth. Loosen with pasta water if needed.", DelaySec: 30, DurationSec: 90},
				{Instruction: "Slice the rested chicken, toss the pasta in the sauce and plate immediately.", DurationSec: 120},
			},
		},
		{
			Name:        "Vegetable Stir Fry",
			Description: "Fast, crunchy, and customizable. The key is a screaming hot pan and not overcrowding it.",
			Steps: []StepDraft{
				{Instruction: "Prep all vegetables and mince the garlic and ginger before the pan goes on.", DurationSec: 600},
				{Instruction: "Mix soy sauce, sesame oil and cornstarch with two tablespoons of water.", DurationSec: 60},
				{Instruction: "Heat the wok on high until it just smokes, then add oil and swirl.", DurationSec: 90},
				{Instruction: "Stir-fry broccoli and carrots, then add peppers and snap peas. Let things char.", DurationSec: 240},
				{Instruction: "Push vegetables aside and fry garlic and ginger in the centre until fragrant.", DurationSec: 30},
				{Instruction: "Pour in the sauce, toss to coat and cook until glossy.", DurationSec: 30},
				{Instruction: "Serve over rice straight away.", DelaySec: 10, DurationSec: 60},
			},
		},
		{
			Name:        "Brown Veal Stock",
			Description: "Base stock for the week's sauces. Roast hard, simmer gently, never boil.",
			Steps: []StepDraft{
				{Instruction: "Roast the bones at 220C until deep brown.", DurationSec: 2700},
				{Instruction: "Add mirepoix and tomato paste to the tray and roast until caramelised.", DurationSec: 900},
				{Instruction: "Deglaze the tray and transfer everything to the stock pot with cold water.", DurationSec: 300},
				{Instruction: "Bring up slowly and skim. Hold at a bare simmer.", DelaySec: 1200, DurationSec: 600},
				{Instruction: "Strain through a chinois, chill in an ice bath and label.", DelaySec: 14400, DurationSec: 900},
			},
		},
	}
}
