package catalog

// DefaultItems is the restaurant's standard menu.
func DefaultItems() []Item {
	return []Item{
		{Category: "Суши", Name: "Суши с лососем", Price: 600, Description: "Свежий лосось, рис, нори.", Photo: "sushi_salmon.jpg"},
		{Category: "Суши", Name: "Суши с тунцом", Price: 650, Description: "Нежный тунец с остринкой.", Photo: "sushi_tuna.jpg"},
		{Category: "Бургеры", Name: "Бургер с говядиной", Price: 350, Description: "Сочная говядина, овощи, соус.", Photo: "beef_burger.jpg"},
		{Category: "Бургеры", Name: "Бургер с курицей", Price: 320, Description: "Хрустящая курица и майонез.", Photo: "chicken_burger.jpg"},
		{Category: "Бургеры", Name: "Фирменные картофельные дольки", Price: 250, Description: "Золотистые дольки со специями.", Photo: "potato_wedges.jpg"},
		{Category: "Пицца", Name: "Пицца Маргарита", Price: 450, Description: "Томаты, моцарелла, базилик.", Photo: "margherita.jpg"},
		{Category: "Пицца", Name: "Пицца Пепперони", Price: 500, Description: "Острая пепперони и сыр.", Photo: "pepperoni.jpg"},
		{Category: "Холодные блюда", Name: "Греческий салат", Price: 350, Description: "Оливки, фета, огурцы.", Photo: "greek_salad.jpg"},
		{Category: "Холодные блюда", Name: "Цезарь с курицей", Price: 400, Description: "Курица, сухарики, пармезан.", Photo: "caesar.jpg"},
		{Category: "Напитки", Name: "Напиток Coca-Cola 0.5л", Price: 150, Description: "Освежающая кола.", Photo: "coca_cola.jpg"},
	}
}

// Default returns the standard menu as a Catalog.
func Default(opts ...Option) *Catalog {
	c, err := New(DefaultItems(), opts...)
	if err != nil {
		panic(err) // the built-in menu is well-formed
	}
	return c
}
