// Package plugin определяет контракт расширения движка.
//
// Каждый тип узла workflow описывается Descriptor'ом: список входных
// и выходных портов, данные по умолчанию и run-функция. Registry —
// process-wide реестр дескрипторов, заполняемый при старте.
//
// Движок вызывает run-функцию как непрозрачную единицу: узел получает
// map входов по ID портов и возвращает map выходов по ID портов, не
// зная ничего о топологии графа вокруг себя.
package plugin
